package grpcapi

import (
	"context"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls the Calculator service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient returns a client using cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) call(ctx context.Context, method string, req map[string]interface{}) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Tokenize returns the tokens of expr.
func (c *Client) Tokenize(ctx context.Context, expr string) (*structpb.Struct, error) {
	return c.call(ctx, "Tokenize", map[string]interface{}{"expression": expr})
}

// Evaluate computes expr.
func (c *Client) Evaluate(ctx context.Context, expr string) (*structpb.Struct, error) {
	return c.call(ctx, "Evaluate", map[string]interface{}{"expression": expr})
}

// CreateSession creates a session; an empty id lets the server pick one.
func (c *Client) CreateSession(ctx context.Context, id string) (*structpb.Struct, error) {
	return c.call(ctx, "CreateSession", map[string]interface{}{"session_id": id})
}

// GetSession fetches a session by name.
func (c *Client) GetSession(ctx context.Context, name string) (*structpb.Struct, error) {
	return c.call(ctx, "GetSession", map[string]interface{}{"name": name})
}

// ListSessions returns every session.
func (c *Client) ListSessions(ctx context.Context) (*structpb.Struct, error) {
	return c.call(ctx, "ListSessions", map[string]interface{}{})
}

// DeleteSession removes a session.
func (c *Client) DeleteSession(ctx context.Context, name string) error {
	_, err := c.call(ctx, "DeleteSession", map[string]interface{}{"name": name})
	return err
}

// Press sends key labels to a session.
func (c *Client) Press(ctx context.Context, name string, keys ...string) (*structpb.Struct, error) {
	list := make([]interface{}, len(keys))
	for i, k := range keys {
		list[i] = k
	}
	return c.call(ctx, "Press", map[string]interface{}{"name": name, "keys": list})
}

// Reason returns the error tag carried by an engine failure, or "" when err
// has none.
func Reason(err error) string {
	st, ok := status.FromError(err)
	if !ok {
		return ""
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok && info.GetDomain() == ErrorDomain {
			return info.GetReason()
		}
	}
	return ""
}
