// Package grpcapi serves the calculator over gRPC. Requests and responses are
// google.protobuf.Struct messages, so any gRPC client can call the service
// without generated stubs.
package grpcapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lemonberrylabs/keypad-calc/pkg/calc"
	"github.com/lemonberrylabs/keypad-calc/pkg/editor"
	"github.com/lemonberrylabs/keypad-calc/pkg/store"
)

// ServiceName is the full gRPC service name.
const ServiceName = "keypadcalc.v1.Calculator"

// ErrorDomain is the domain of ErrorInfo details attached to engine failures.
const ErrorDomain = "keypadcalc"

// CalculatorServer is the service implemented by Server.
type CalculatorServer interface {
	Tokenize(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Evaluate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListSessions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Press(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type structMethod func(CalculatorServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, fn structMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return fn(srv.(CalculatorServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + name,
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return fn(srv.(CalculatorServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes the Calculator service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CalculatorServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Tokenize", CalculatorServer.Tokenize),
		unary("Evaluate", CalculatorServer.Evaluate),
		unary("CreateSession", CalculatorServer.CreateSession),
		unary("GetSession", CalculatorServer.GetSession),
		unary("ListSessions", CalculatorServer.ListSessions),
		unary("DeleteSession", CalculatorServer.DeleteSession),
		unary("Press", CalculatorServer.Press),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "keypadcalc/v1/calculator.proto",
}

// Server implements the Calculator gRPC service.
type Server struct {
	store     *store.Store
	formatter editor.Formatter
	grpc      *grpc.Server
}

// Option configures a Server.
type Option func(*Server)

// WithFormatter sets the formatter used for display fields.
func WithFormatter(f editor.Formatter) Option {
	return func(s *Server) { s.formatter = f }
}

// New creates a new gRPC server wrapping the given store.
func New(s *store.Store, opts ...Option) *Server {
	srv := &Server{
		store:     s,
		formatter: editor.DefaultFormatter,
	}
	for _, opt := range opts {
		opt(srv)
	}

	gs := grpc.NewServer()
	gs.RegisterService(&ServiceDesc, srv)
	srv.grpc = gs

	return srv
}

// Serve starts listening on the given address and serves gRPC requests.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	return s.grpc.Serve(lis)
}

// GracefulStop gracefully stops the gRPC server.
func (s *Server) GracefulStop() {
	s.grpc.GracefulStop()
}

// --- Expressions ---

func (s *Server) Tokenize(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	expr := stringField(req, "expression")
	tokens, err := calc.Tokenize(expr)
	if err != nil {
		return nil, engineStatus(err)
	}

	items := make([]interface{}, len(tokens))
	for i, tok := range tokens {
		item := map[string]interface{}{
			"type":   tok.Type.String(),
			"lexeme": tok.Lexeme,
			"pos":    tok.Pos,
		}
		switch tok.Type {
		case calc.TokenNumber:
			item["value"] = tok.Value
		case calc.TokenOperator:
			item["operator"] = tok.Op.String()
		}
		items[i] = item
	}
	return newStruct(map[string]interface{}{
		"expression": expr,
		"tokens":     items,
	})
}

func (s *Server) Evaluate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	expr := stringField(req, "expression")
	value, err := calc.Compute(expr)
	if err != nil {
		return nil, engineStatus(err)
	}
	return newStruct(map[string]interface{}{
		"expression": expr,
		"value":      value,
		"canonical":  calc.FormatCanonical(value),
		"display":    calc.FormatDisplay(value, s.formatter.Precision),
	})
}

// --- Sessions ---

func (s *Server) CreateSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.store.CreateSession(stringField(req, "session_id"))
	if err != nil {
		return nil, storeStatus(err)
	}
	return s.sessionToStruct(sess)
}

func (s *Server) GetSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.store.GetSession(stringField(req, "name"))
	if err != nil {
		return nil, storeStatus(err)
	}
	return s.sessionToStruct(sess)
}

func (s *Server) ListSessions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sessions := s.store.ListSessions()
	items := make([]interface{}, len(sessions))
	for i, sess := range sessions {
		items[i] = s.sessionToMap(sess)
	}
	return newStruct(map[string]interface{}{
		"sessions": items,
	})
}

func (s *Server) DeleteSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := s.store.DeleteSession(stringField(req, "name")); err != nil {
		return nil, storeStatus(err)
	}
	return &structpb.Struct{}, nil
}

// Press applies "keys" (a list of labels) and then "sequence" (a string of
// one-character keys) to the named session.
func (s *Server) Press(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var labels []string
	for _, v := range req.GetFields()["keys"].GetListValue().GetValues() {
		labels = append(labels, v.GetStringValue())
	}
	events, err := editor.ParseKeys(labels)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	more, err := editor.SplitKeys(stringField(req, "sequence"))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	events = append(events, more...)
	if len(events) == 0 {
		return nil, status.Error(codes.InvalidArgument, "keys or sequence is required")
	}

	sess, err := s.store.Press(stringField(req, "name"), events...)
	if err != nil {
		return nil, storeStatus(err)
	}
	return s.sessionToStruct(sess)
}

// --- Conversion Helpers ---

func stringField(req *structpb.Struct, key string) string {
	return req.GetFields()[key].GetStringValue()
}

func newStruct(m map[string]interface{}) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding response: %v", err)
	}
	return st, nil
}

func (s *Server) sessionToMap(sess *store.Session) map[string]interface{} {
	history := make([]interface{}, len(sess.History))
	for i, c := range sess.History {
		item := map[string]interface{}{
			"expression": c.Expression,
			"value":      c.Value,
			"time":       c.Time.Format(time.RFC3339Nano),
		}
		if c.Failed() {
			item["error"] = c.Error
			item["reason"] = c.Reason
		}
		history[i] = item
	}
	return map[string]interface{}{
		"name":        sess.Name,
		"display":     s.formatter.Display(sess.State),
		"buffer":      sess.State.Buffer.String(),
		"failed":      sess.State.Failed(),
		"presses":     sess.Presses,
		"history":     history,
		"create_time": sess.CreateTime.Format(time.RFC3339),
		"update_time": sess.UpdateTime.Format(time.RFC3339),
	}
}

func (s *Server) sessionToStruct(sess *store.Session) (*structpb.Struct, error) {
	return newStruct(s.sessionToMap(sess))
}

// engineStatus maps a tokenizer or evaluator failure to InvalidArgument with
// an ErrorInfo detail whose reason is the error tag.
func engineStatus(err error) error {
	var ce *calc.Error
	if !errors.As(err, &ce) {
		return status.Error(codes.Internal, err.Error())
	}
	st := status.New(codes.InvalidArgument, err.Error())
	info := &errdetails.ErrorInfo{
		Reason:   ce.Kind.Tag(),
		Domain:   ErrorDomain,
		Metadata: map[string]string{"phase": ce.Kind.Phase()},
	}
	if ce.Pos >= 0 {
		info.Metadata["position"] = strconv.Itoa(ce.Pos)
	}
	if withInfo, derr := st.WithDetails(info); derr == nil {
		st = withInfo
	}
	return st.Err()
}

func storeStatus(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, store.ErrAlreadyExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, store.ErrInvalidID):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
