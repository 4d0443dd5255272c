package grpcapi

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lemonberrylabs/keypad-calc/pkg/editor"
	"github.com/lemonberrylabs/keypad-calc/pkg/store"
)

func startTestServer(t *testing.T, opts ...Option) (string, func()) {
	t.Helper()
	s := store.New()
	srv := New(s, opts...)

	lis, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	go srv.grpc.Serve(lis)

	return lis.Addr().String(), func() {
		srv.grpc.Stop()
	}
}

func dial(t *testing.T, addr string) *grpc.ClientConn {
	t.Helper()
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	return conn
}

func newTestClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	addr, cleanup := startTestServer(t, opts...)
	t.Cleanup(cleanup)
	conn := dial(t, addr)
	t.Cleanup(func() { conn.Close() })
	return NewClient(conn)
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestEvaluate(t *testing.T) {
	client := newTestClient(t)
	ctx := testContext(t)

	tests := []struct {
		expr      string
		value     float64
		canonical string
	}{
		{"2+3×4", 14, "14"},
		{"2^3^2", 512, "512"},
		{"50%+10", 10.5, "10.5"},
		{"-2^2", 4, "4"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			resp, err := client.Evaluate(ctx, tt.expr)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			fields := resp.GetFields()
			if got := fields["value"].GetNumberValue(); got != tt.value {
				t.Errorf("value = %v, want %v", got, tt.value)
			}
			if got := fields["canonical"].GetStringValue(); got != tt.canonical {
				t.Errorf("canonical = %q, want %q", got, tt.canonical)
			}
		})
	}
}

func TestEvaluateErrors(t *testing.T) {
	client := newTestClient(t)
	ctx := testContext(t)

	tests := []struct {
		expr   string
		reason string
	}{
		{"5÷0", "DivisionByZero"},
		{"×3", "MalformedExpression"},
		{"  ", "EmptyExpression"},
		{"1#2", "UnrecognizedCharacter"},
	}
	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			_, err := client.Evaluate(ctx, tt.expr)
			if err == nil {
				t.Fatal("expected error")
			}
			if code := status.Code(err); code != codes.InvalidArgument {
				t.Errorf("code = %v, want InvalidArgument", code)
			}
			if got := Reason(err); got != tt.reason {
				t.Errorf("reason = %q, want %q", got, tt.reason)
			}
		})
	}
}

func TestTokenize(t *testing.T) {
	client := newTestClient(t)
	ctx := testContext(t)

	resp, err := client.Tokenize(ctx, "12÷4")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	tokens := resp.GetFields()["tokens"].GetListValue().GetValues()
	if len(tokens) != 3 {
		t.Fatalf("expected 3 tokens, got %d", len(tokens))
	}
	op := tokens[1].GetStructValue().GetFields()
	if op["operator"].GetStringValue() != "Divide" || op["pos"].GetNumberValue() != 2 {
		t.Errorf("unexpected operator token %v", op)
	}
	last := tokens[2].GetStructValue().GetFields()
	if last["value"].GetNumberValue() != 4 || last["pos"].GetNumberValue() != 4 {
		t.Errorf("unexpected number token %v", last)
	}
}

func TestSessions(t *testing.T) {
	client := newTestClient(t, WithFormatter(editor.Formatter{Precision: 4, ErrorText: "E"}))
	ctx := testContext(t)

	sess, err := client.CreateSession(ctx, "desk")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	name := sess.GetFields()["name"].GetStringValue()
	if name != "sessions/desk" {
		t.Fatalf("unexpected name %q", name)
	}

	resp, err := client.Press(ctx, name, "1", "÷", "3", "=")
	if err != nil {
		t.Fatalf("Press: %v", err)
	}
	fields := resp.GetFields()
	if got := fields["display"].GetStringValue(); got != "0.3333" {
		t.Errorf("display = %q, want 0.3333", got)
	}
	if got := len(fields["history"].GetListValue().GetValues()); got != 1 {
		t.Errorf("history length = %d, want 1", got)
	}

	resp, err = client.Press(ctx, name, "C", "5", "÷", "0", "=")
	if err != nil {
		t.Fatalf("Press: %v", err)
	}
	fields = resp.GetFields()
	if fields["display"].GetStringValue() != "E" || !fields["failed"].GetBoolValue() {
		t.Errorf("unexpected failure state %v", fields)
	}
	history := fields["history"].GetListValue().GetValues()
	if reason := history[1].GetStructValue().GetFields()["reason"].GetStringValue(); reason != "DivisionByZero" {
		t.Errorf("history reason = %q", reason)
	}

	got, err := client.GetSession(ctx, name)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.GetFields()["presses"].GetNumberValue() != 9 {
		t.Errorf("presses = %v, want 9", got.GetFields()["presses"])
	}

	list, err := client.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if n := len(list.GetFields()["sessions"].GetListValue().GetValues()); n != 1 {
		t.Errorf("expected 1 session, got %d", n)
	}

	if err := client.DeleteSession(ctx, name); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := client.GetSession(ctx, name); status.Code(err) != codes.NotFound {
		t.Errorf("expected NotFound after delete, got %v", err)
	}
}

func TestSessionErrors(t *testing.T) {
	client := newTestClient(t)
	ctx := testContext(t)

	if _, err := client.CreateSession(ctx, "dup"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	tests := []struct {
		name string
		call func() error
		code codes.Code
	}{
		{"duplicate", func() error { _, err := client.CreateSession(ctx, "dup"); return err }, codes.AlreadyExists},
		{"invalid id", func() error { _, err := client.CreateSession(ctx, "No Spaces"); return err }, codes.InvalidArgument},
		{"missing", func() error { _, err := client.GetSession(ctx, "sessions/none"); return err }, codes.NotFound},
		{"press missing", func() error { _, err := client.Press(ctx, "sessions/none", "1"); return err }, codes.NotFound},
		{"unknown key", func() error { _, err := client.Press(ctx, "sessions/dup", "log"); return err }, codes.InvalidArgument},
		{"no keys", func() error { _, err := client.Press(ctx, "sessions/dup"); return err }, codes.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if code := status.Code(err); code != tt.code {
				t.Errorf("code = %v, want %v (%v)", code, tt.code, err)
			}
			if Reason(err) != "" {
				t.Errorf("unexpected engine reason on %v", err)
			}
		})
	}
}

func TestServeAndGracefulStop(t *testing.T) {
	lis, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	addr := lis.Addr().String()
	lis.Close()

	srv := New(store.New())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(addr) }()

	conn := dial(t, addr)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Serve may not be listening yet; WaitForReady blocks until it is.
	in, _ := structpb.NewStruct(map[string]interface{}{"expression": "2+2"})
	out := new(structpb.Struct)
	if err := conn.Invoke(ctx, "/"+ServiceName+"/Evaluate", in, out, grpc.WaitForReady(true)); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got := out.GetFields()["canonical"].GetStringValue(); got != "4" {
		t.Errorf("canonical = %q, want 4", got)
	}

	srv.GracefulStop()
	if err := <-errCh; err != nil {
		t.Errorf("Serve returned %v", err)
	}
}
