package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/mrlokans/kobosync/internal/audit"
	"github.com/mrlokans/kobosync/internal/config"
	"github.com/mrlokans/kobosync/internal/entrypoint"
)

const (
	devicesListUnlinked = "list-unlinked"
	devicesListLinked   = "list-linked"
	devicesLink         = "link"
	devicesUnlink       = "unlink"
	devicesAudit        = "audit"
)

// DevicesCommand administers device links from the command line.
type DevicesCommand struct {
	Action   string
	DeviceID string
	APIKey   string
	Limit    int

	cfg *config.Config
	out io.Writer
}

// NewDevicesCommand creates a new DevicesCommand
func NewDevicesCommand(cfg *config.Config, out io.Writer) *DevicesCommand {
	return &DevicesCommand{cfg: cfg, out: out}
}

// ParseFlags parses the action and its flags
func (cmd *DevicesCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("devices", flag.ContinueOnError)

	fs.StringVar(&cmd.DeviceID, "device", "", "Device identity as shown by list-unlinked")
	fs.StringVar(&cmd.APIKey, "api-key", "", "Prosa API key the device is linked with")
	fs.StringVar(&cmd.cfg.Database.Path, "db", cmd.cfg.Database.Path, "Path to the database file")
	fs.IntVar(&cmd.Limit, "limit", 20, "Number of audit events to show")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s devices <action> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Actions:\n")
		fmt.Fprintf(os.Stderr, "  list-unlinked   Show devices that authenticated but hold no link\n")
		fmt.Fprintf(os.Stderr, "  list-linked     Show devices linked with -api-key\n")
		fmt.Fprintf(os.Stderr, "  link            Link -device with -api-key\n")
		fmt.Fprintf(os.Stderr, "  unlink          Unlink -device; -api-key must match the link\n")
		fmt.Fprintf(os.Stderr, "  audit           Show recent audit events of -device\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s devices list-unlinked\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s devices link -device <identity> -api-key <key>\n", os.Args[0])
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
	case devicesListUnlinked:
	case devicesListLinked:
		if cmd.APIKey == "" {
			return errors.New("-api-key is required")
		}
	case devicesLink, devicesUnlink:
		if cmd.DeviceID == "" || cmd.APIKey == "" {
			return errors.New("-device and -api-key are required")
		}
	case devicesAudit:
		if cmd.DeviceID == "" {
			return errors.New("-device is required")
		}
	default:
		return fmt.Errorf("unknown action: %s", cmd.Action)
	}
	return nil
}

// Run executes the parsed action against the database
func (cmd *DevicesCommand) Run() error {
	stores, err := entrypoint.OpenStores(cmd.cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	// Link changes made here are audited like the admin endpoints
	req := audit.Request{UserAgent: "kobosync-cli"}

	switch cmd.Action {
	case devicesListUnlinked:
		devices, err := stores.Devices.ListUnlinked()
		if err != nil {
			return fmt.Errorf("failed to list unlinked devices: %w", err)
		}
		if len(devices) == 0 {
			fmt.Fprintln(cmd.out, "No unlinked devices")
			return nil
		}
		w := tabwriter.NewWriter(cmd.out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "DEVICE\tFIRST SEEN")
		for _, d := range devices {
			fmt.Fprintf(w, "%s\t%s\n", d.DeviceID, d.Timestamp.Format(time.RFC3339))
		}
		return w.Flush()

	case devicesListLinked:
		devices, err := stores.Devices.ListLinked(cmd.APIKey)
		if err != nil {
			return fmt.Errorf("failed to list linked devices: %w", err)
		}
		if len(devices) == 0 {
			fmt.Fprintln(cmd.out, "No linked devices")
			return nil
		}
		for _, d := range devices {
			fmt.Fprintln(cmd.out, d)
		}
		return nil

	case devicesLink:
		if err := stores.Devices.Link(cmd.DeviceID, cmd.APIKey, req); err != nil {
			return fmt.Errorf("failed to link %s: %w", cmd.DeviceID, err)
		}
		fmt.Fprintf(cmd.out, "Linked %s\n", cmd.DeviceID)
		return nil

	case devicesUnlink:
		if err := stores.Devices.Unlink(cmd.DeviceID, cmd.APIKey, req); err != nil {
			return fmt.Errorf("failed to unlink %s: %w", cmd.DeviceID, err)
		}
		fmt.Fprintf(cmd.out, "Unlinked %s\n", cmd.DeviceID)
		return nil

	case devicesAudit:
		events, total, err := stores.Audit.GetEvents(cmd.DeviceID, cmd.Limit, 0)
		if err != nil {
			return fmt.Errorf("failed to load audit events: %w", err)
		}
		w := tabwriter.NewWriter(cmd.out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tACTION\tDESCRIPTION")
		for _, e := range events {
			fmt.Fprintf(w, "%s\t%s\t%s\n", e.CreatedAt.Format(time.RFC3339), e.Action, e.Description)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.out, "%d of %d events\n", len(events), total)
		return nil
	}

	return fmt.Errorf("unknown action: %s", cmd.Action)
}
