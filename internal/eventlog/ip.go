package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// IPResolver looks the public IP up once per process and remembers the
// answer, or the failure, for good.
type IPResolver struct {
	url     string
	client  *http.Client
	logger  *slog.Logger
	timeout time.Duration

	once sync.Once
	done chan struct{}
	ip   string
}

func NewIPResolver(lookupURL string, client *http.Client, logger *slog.Logger) *IPResolver {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IPResolver{
		url:     lookupURL,
		client:  client,
		logger:  logger.With("component", "ip_resolver"),
		timeout: 5 * time.Second,
		done:    make(chan struct{}),
	}
}

// Start begins the lookup in the background. Later calls do nothing.
func (r *IPResolver) Start() {
	r.once.Do(func() {
		go func() {
			defer close(r.done)
			if r.url == "" {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
			defer cancel()
			ip, err := r.lookup(ctx)
			if err != nil {
				r.logger.Warn("public ip lookup failed", "error", err)
				return
			}
			r.ip = ip
		}()
	})
}

// Wait starts the lookup if needed and returns the IP, or "" when it is
// not known within maxWait.
func (r *IPResolver) Wait(ctx context.Context, maxWait time.Duration) string {
	r.Start()
	t := time.NewTimer(maxWait)
	defer t.Stop()
	select {
	case <-r.done:
		return r.ip
	case <-t.C:
		return ""
	case <-ctx.Done():
		return ""
	}
}

func (r *IPResolver) lookup(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return "", err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ip lookup: unexpected HTTP status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", err
	}

	// {"ip":"..."} from JSON endpoints, the bare address otherwise
	var payload struct {
		IP string `json:"ip"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.IP != "" {
		return payload.IP, nil
	}
	ip := strings.TrimSpace(string(body))
	if ip == "" || strings.ContainsAny(ip, "{}<> ") {
		return "", fmt.Errorf("ip lookup: unrecognized response")
	}
	return ip, nil
}
