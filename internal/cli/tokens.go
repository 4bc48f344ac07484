package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mrlokans/kobosync/internal/config"
	"github.com/mrlokans/kobosync/internal/entrypoint"
)

const (
	tokensPurge  = "purge"
	tokensRevoke = "revoke"
)

// TokensCommand maintains the download token table.
type TokensCommand struct {
	Action string
	BookID string

	cfg *config.Config
	out io.Writer
}

// NewTokensCommand creates a new TokensCommand
func NewTokensCommand(cfg *config.Config, out io.Writer) *TokensCommand {
	return &TokensCommand{cfg: cfg, out: out}
}

// ParseFlags parses the action and its flags
func (cmd *TokensCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("tokens", flag.ContinueOnError)

	fs.StringVar(&cmd.BookID, "book", "", "Book whose download and cover tokens are revoked")
	fs.StringVar(&cmd.cfg.Database.Path, "db", cmd.cfg.Database.Path, "Path to the database file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s tokens <action> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Actions:\n")
		fmt.Fprintf(os.Stderr, "  purge    Delete expired download tokens now\n")
		fmt.Fprintf(os.Stderr, "  revoke   Delete every token issued for -book\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		fs.PrintDefaults()
	}

	if len(args) == 0 {
		fs.Usage()
		return errors.New("missing action")
	}
	cmd.Action = args[0]

	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	switch cmd.Action {
	case tokensPurge:
	case tokensRevoke:
		if cmd.BookID == "" {
			return errors.New("-book is required")
		}
	default:
		return fmt.Errorf("unknown action: %s", cmd.Action)
	}
	return nil
}

// Run executes the parsed action against the database
func (cmd *TokensCommand) Run() error {
	stores, err := entrypoint.OpenStores(cmd.cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	switch cmd.Action {
	case tokensPurge:
		deleted, err := stores.Tokens.PurgeExpired()
		if err != nil {
			return fmt.Errorf("failed to purge tokens: %w", err)
		}
		fmt.Fprintf(cmd.out, "Purged %d expired tokens\n", deleted)
		return nil

	case tokensRevoke:
		if err := stores.Tokens.RevokeForBook(cmd.BookID); err != nil {
			return fmt.Errorf("failed to revoke tokens of %s: %w", cmd.BookID, err)
		}
		fmt.Fprintf(cmd.out, "Revoked tokens of %s\n", cmd.BookID)
		return nil
	}

	return fmt.Errorf("unknown action: %s", cmd.Action)
}
