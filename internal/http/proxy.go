package http

import (
	"fmt"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// StoreProxy forwards requests this server does not handle to the Kobo
// store, so store features keep working on a linked device.
type StoreProxy struct {
	store  *httputil.ReverseProxy
	images *httputil.ReverseProxy
}

func NewStoreProxy(storeURL, imageURL string) (*StoreProxy, error) {
	store, err := newReverseProxy(storeURL)
	if err != nil {
		return nil, err
	}
	images, err := newReverseProxy(imageURL)
	if err != nil {
		return nil, err
	}
	return &StoreProxy{store: store, images: images}, nil
}

func newReverseProxy(rawURL string) (*httputil.ReverseProxy, error) {
	target, err := url.Parse(rawURL)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid proxy target %q", rawURL)
	}

	return &httputil.ReverseProxy{
		Rewrite: func(r *httputil.ProxyRequest) {
			r.SetURL(target)
			r.Out.Host = target.Host
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			log.Printf("Store proxy error (%s %s): %v", r.Method, r.URL.Path, err)
			w.WriteHeader(http.StatusBadGateway)
		},
	}, nil
}

// Handle forwards the request. Cover image paths go to the image CDN.
func (p *StoreProxy) Handle(c *gin.Context) {
	if strings.Contains(c.Request.URL.Path, "book-images") {
		p.images.ServeHTTP(c.Writer, c.Request)
		return
	}
	p.store.ServeHTTP(c.Writer, c.Request)
}
