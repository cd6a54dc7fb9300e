package notifier

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"
)

// Notifier delivers a text message to one channel.
type Notifier interface {
	Name() string
	Send(ctx context.Context, text string) error
}

// backoffUnit is the first retry delay; it doubles on every attempt.
var backoffUnit = time.Second

// SendWithRetry sends a message with exponential backoff retry.
func SendWithRetry(ctx context.Context, n Notifier, text string, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		err := n.Send(ctx, text)
		if err == nil {
			return nil
		}
		lastErr = err
		if i == maxRetries {
			break
		}
		backoff := time.Duration(1<<uint(i)) * backoffUnit
		log.Printf("[WARN] %s send failed (attempt %d/%d): %v, retrying in %v", n.Name(), i+1, maxRetries+1, err, backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("%s: all %d attempts failed: %w", n.Name(), maxRetries+1, lastErr)
}

// Broadcast sends text to every notifier. Failures are logged and joined,
// never stopping delivery to the remaining channels.
func Broadcast(ctx context.Context, ns []Notifier, text string, maxRetries int) error {
	var errs []error
	for _, n := range ns {
		if err := SendWithRetry(ctx, n, text, maxRetries); err != nil {
			log.Printf("[ERROR] notify %s: %v", n.Name(), err)
			errs = append(errs, err)
			continue
		}
		log.Printf("[INFO] notification sent via %s", n.Name())
	}
	return errors.Join(errs...)
}

func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}
