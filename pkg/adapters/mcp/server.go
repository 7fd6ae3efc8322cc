package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/ttystep"
	"github.com/aretw0/ttystep/internal/logging"
	"github.com/aretw0/ttystep/pkg/domain"
	"github.com/aretw0/ttystep/pkg/registry"
	"github.com/aretw0/ttystep/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ProgramsURI lists the registered programs.
const ProgramsURI = "ttystep://programs"

// StepResponse is the result of every tool that moves a session.
type StepResponse struct {
	SessionID      string `json:"session_id" jsonschema_description:"The session the result belongs to"`
	Observation    string `json:"observation" jsonschema_description:"Terminal output emitted during the transfer"`
	ObservationRaw []byte `json:"observation_raw" jsonschema_description:"The same output as exact bytes, base64 encoded"`
	Done           bool   `json:"done" jsonschema_description:"True once the program reached its exit path"`
	Steps          int    `json:"steps" jsonschema_description:"Actions fed since the session started"`
	Resets         int    `json:"resets" jsonschema_description:"Resets since the session started"`
}

// StartArgs are the arguments of start_session.
type StartArgs struct {
	Program       string `json:"program,omitempty"`
	Strategy      string `json:"strategy,omitempty"`
	RecordActions bool   `json:"record_actions,omitempty"`
}

// StepArgs are the arguments of step.
type StepArgs struct {
	SessionID string `json:"session_id"`
	Action    string `json:"action"`
}

// SessionArgs identify a session.
type SessionArgs struct {
	SessionID string `json:"session_id"`
}

// ListResponse is the result of list_sessions.
type ListResponse struct {
	Sessions []*domain.SessionInfo `json:"sessions"`
}

// Server exposes a session.Manager as an MCP Server.
type Server struct {
	manager   *session.Manager
	registry  *registry.Registry
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithRegistry sets the registry listed by the programs resource.
func WithRegistry(reg *registry.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}

// WithLogger configures the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(mgr *session.Manager, opts ...Option) *Server {
	s := &Server{
		manager:   mgr,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("ttystep-mcp", strings.TrimSpace(ttystep.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = ttystep.DefaultRegistry()
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the MCP endpoints over SSE at addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr string) error {
	baseURL := "http://" + addr
	if strings.HasPrefix(addr, ":") {
		baseURL = "http://localhost" + addr
	}
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("start_session",
		mcp.WithDescription("Start a console program and return its initial screen."),
		mcp.WithString("program", mcp.Description("Registered program name (default: demo)")),
		mcp.WithString("strategy", mcp.Description("Reset strategy: isolated, inplace or relay")),
		mcp.WithBoolean("record_actions", mcp.Description("Also record every action in the ttyrec file")),
		mcp.WithOutputSchema[StepResponse](),
	), mcp.NewStructuredToolHandler(s.handleStart))

	s.mcpServer.AddTool(mcp.NewTool("step",
		mcp.WithDescription("Feed one key to the program and return the output it produced until it waited for input again."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID returned by start_session")),
		mcp.WithString("action", mcp.Required(), mcp.Description(`One key: a character ("y"), a decimal code ("13") or an escape ("\n")`)),
		mcp.WithOutputSchema[StepResponse](),
	), mcp.NewStructuredToolHandler(s.handleStep))

	s.mcpServer.AddTool(mcp.NewTool("reset_session",
		mcp.WithDescription("Restore the program to its initial state and return the initial screen."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithOutputSchema[StepResponse](),
	), mcp.NewStructuredToolHandler(s.handleReset))

	s.mcpServer.AddTool(mcp.NewTool("end_session",
		mcp.WithDescription("Terminate the program and close its recording."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
	), mcp.NewStructuredToolHandler(s.handleEnd))

	s.mcpServer.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List known sessions with their step counts."),
		mcp.WithOutputSchema[ListResponse](),
	), mcp.NewStructuredToolHandler(s.handleList))
}

func (s *Server) handleStart(ctx context.Context, request mcp.CallToolRequest, args StartArgs) (StepResponse, error) {
	var opts []ttystep.Option
	if args.Program != "" {
		opts = append(opts, ttystep.WithProgram(args.Program))
	}
	if args.Strategy != "" {
		strategy, err := domain.ParseStrategy(args.Strategy)
		if err != nil {
			return StepResponse{}, err
		}
		opts = append(opts, ttystep.WithStrategy(strategy))
	}
	if args.RecordActions {
		opts = append(opts, ttystep.WithRecordActions(true))
	}

	sess, err := s.manager.Create(ctx, opts...)
	if err != nil {
		return StepResponse{}, fmt.Errorf("start failed: %w", err)
	}
	s.logger.Info("MCP session started", "session_id", sess.ID())
	return s.respond(ctx, sess.ID(), sess.Done(), sess.Observation())
}

func (s *Server) handleStep(ctx context.Context, request mcp.CallToolRequest, args StepArgs) (StepResponse, error) {
	action, err := domain.ParseAction(args.Action)
	if err != nil {
		return StepResponse{}, err
	}
	done, obs, err := s.manager.Step(ctx, args.SessionID, action)
	if err != nil {
		s.logger.Warn("MCP step rejected", "session_id", args.SessionID, "err", err)
		return StepResponse{}, fmt.Errorf("step failed: %w", err)
	}
	return s.respond(ctx, args.SessionID, done, obs)
}

func (s *Server) handleReset(ctx context.Context, request mcp.CallToolRequest, args SessionArgs) (StepResponse, error) {
	obs, err := s.manager.Reset(ctx, args.SessionID)
	if err != nil {
		return StepResponse{}, fmt.Errorf("reset failed: %w", err)
	}
	return s.respond(ctx, args.SessionID, false, obs)
}

func (s *Server) handleEnd(ctx context.Context, request mcp.CallToolRequest, args SessionArgs) (*domain.SessionInfo, error) {
	err := s.manager.End(ctx, args.SessionID)
	if err != nil && !errors.Is(err, domain.ErrSessionEnded) {
		return nil, fmt.Errorf("end failed: %w", err)
	}
	return s.manager.Get(ctx, args.SessionID)
}

func (s *Server) handleList(ctx context.Context, request mcp.CallToolRequest, args struct{}) (ListResponse, error) {
	infos, err := s.manager.List(ctx)
	if err != nil {
		return ListResponse{}, err
	}
	return ListResponse{Sessions: infos}, nil
}

func (s *Server) respond(ctx context.Context, id string, done bool, obs []byte) (StepResponse, error) {
	info, err := s.manager.Get(ctx, id)
	if err != nil {
		return StepResponse{}, err
	}
	return StepResponse{
		SessionID:      id,
		Observation:    string(obs),
		ObservationRaw: obs,
		Done:           done || info.Done,
		Steps:          info.Steps,
		Resets:         info.Resets,
	}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(ProgramsURI, "Registered Programs",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		type program struct {
			Name          string `json:"name"`
			Description   string `json:"description"`
			StackConfined bool   `json:"stack_confined"`
		}
		var list []program
		for _, e := range s.registry.List() {
			list = append(list, program{Name: e.Name, Description: e.Description, StackConfined: e.StackConfined()})
		}
		jsonBytes, _ := json.Marshal(list)

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      ProgramsURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
