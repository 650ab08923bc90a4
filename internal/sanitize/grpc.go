package sanitize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"

	"github.com/af-corp/containment-gateway/internal/config"
)

const sanitizeMethod = "/privacy.v1.SanitizerService/Sanitize"

// jsonCodec lets the sanitizer service be called with plain structs. The
// service registers the same codec name on its side.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return "json" }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type sanitizeRequest struct {
	Text string `json:"text"`
	Meta Meta   `json:"meta"`
}

type sanitizeResponse struct {
	SanitizedContent string   `json:"sanitized_content"`
	WasModified      bool     `json:"was_modified"`
	DetectedItems    []Item   `json:"detected_items"`
	ComplianceFlags  []string `json:"compliance_flags"`
}

// invoker is satisfied by *grpc.ClientConn.
type invoker interface {
	Invoke(ctx context.Context, method string, args, reply any, opts ...grpc.CallOption) error
}

// Client calls the remote privacy sanitizer over gRPC.
type Client struct {
	conn *grpc.ClientConn
	rpc  invoker
	cfg  func() config.SanitizerConfig
}

// NewClient creates a sanitizer client. Call Connect() to establish the gRPC connection.
func NewClient(cfg func() config.SanitizerConfig) *Client {
	return &Client{cfg: cfg}
}

// Connect establishes the gRPC connection to the sanitizer service.
func (c *Client) Connect() error {
	cfg := c.cfg()
	conn, err := grpc.NewClient(cfg.Address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(jsonCodec{}.Name())),
	)
	if err != nil {
		return fmt.Errorf("sanitizer service dial: %w", err)
	}
	c.conn = conn
	c.rpc = conn
	slog.Info("sanitizer service connected", "address", cfg.Address)
	return nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Sanitize sends text to the service once. Failures are returned as-is.
func (c *Client) Sanitize(ctx context.Context, text string, meta Meta) (*Result, error) {
	if c.rpc == nil {
		return nil, errors.New("sanitizer service not connected")
	}

	cfg := c.cfg()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	var resp sanitizeResponse
	err := c.rpc.Invoke(ctx, sanitizeMethod, &sanitizeRequest{Text: text, Meta: meta}, &resp,
		grpc.CallContentSubtype(jsonCodec{}.Name()))
	if err != nil {
		slog.Error("sanitizer service error", "stage", meta.Stage, "code", status.Code(err).String(), "error", err)
		return nil, fmt.Errorf("sanitize %s: %w", meta.Stage, err)
	}

	return &Result{
		SanitizedContent: resp.SanitizedContent,
		WasModified:      resp.WasModified,
		DetectedItems:    resp.DetectedItems,
		ComplianceFlags:  resp.ComplianceFlags,
	}, nil
}
