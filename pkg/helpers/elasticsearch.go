package helpers

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
)

// ESConfig holds the ELASTICSEARCH_* settings.
type ESConfig struct {
	Addrs      []string
	Username   string
	Password   string
	MaxRetries int
}

func (c ESConfig) check() error {
	if len(c.Addrs) == 0 {
		return errors.New("elasticsearch: no addresses")
	}
	for _, a := range c.Addrs {
		u, err := url.Parse(a)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("elasticsearch: bad address %q", a)
		}
	}
	return nil
}

// NewESClient builds the client behind the user search index. Only gateway
// errors are retried.
func NewESClient(c ESConfig) (*elasticsearch.Client, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	retries := c.MaxRetries
	if retries <= 0 {
		retries = 2
	}
	return elasticsearch.NewClient(elasticsearch.Config{
		Addresses:     c.Addrs,
		Username:      c.Username,
		Password:      c.Password,
		MaxRetries:    retries,
		RetryOnStatus: []int{http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout},
		Transport: &http.Transport{
			MaxIdleConnsPerHost:   10,
			ResponseHeaderTimeout: 3 * time.Second,
			TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
			DialContext:           (&net.Dialer{Timeout: 2 * time.Second}).DialContext,
		},
	})
}
