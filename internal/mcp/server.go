package mcp

import (
	"context"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	log "github.com/sirupsen/logrus"

	"github.com/R167/netid/internal/monitor"
	"github.com/R167/netid/internal/output"
	"github.com/R167/netid/internal/security"
)

const toolName = "network_status"

// StatusSource is satisfied by *monitor.Monitor.
type StatusSource interface {
	Refresh(ctx context.Context) (monitor.State, error)
	Current() monitor.State
}

type Server struct {
	source  StatusSource
	limiter *security.RateLimiter
	log     *log.Entry
	version string

	mu      sync.Mutex
	sampled bool
}

func NewServer(source StatusSource, version string) *Server {
	return &Server{
		source:  source,
		limiter: security.SampleLimiter(),
		log:     log.WithField("component", "mcp"),
		version: version,
	}
}

// Status handles one network_status call. The identifier key is never part
// of the result.
func (s *Server) Status(ctx context.Context, input StatusInput) (*StatusOutput, error) {
	var (
		state  monitor.State
		err    error
		cached = true
	)

	current := s.source.Current()
	if s.refreshAllowed(input.Refresh, current) {
		state, err = s.source.Refresh(ctx)
		cached = false
	} else {
		state = current
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	report := output.NewBufferedOutput(false)
	output.WriteStatus(report, output.Status{Snapshot: state.Snapshot, ID: state.ID, Err: err, Redact: true})

	out := &StatusOutput{
		Reachability:     state.Snapshot.Reachability.String(),
		Reachable:        state.Snapshot.Reachability.Reachable(),
		InterfacePresent: state.Snapshot.DefaultInterface != "",
		Known:            state.Known,
		Fingerprint:      state.ID.Fingerprint(),
		Cached:           cached,
		Report:           report.String(),
	}
	if err != nil {
		out.Error = err.Error()
	}
	return out, nil
}

// refreshAllowed reports whether this call may sample. The first call on a
// server with nothing sampled bypasses the limiter; every later refresh,
// including retries while the source has no identifier, spends a token.
func (s *Server) refreshAllowed(requested bool, current monitor.State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.sampled && current.ID.IsZero() {
		s.sampled = true
		return true
	}
	if !requested && !current.ID.IsZero() {
		return false
	}
	return s.limiter.Allow()
}

func (s *Server) register(server *mcpsdk.Server) {
	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        toolName,
		Description: "Report the current network reachability and a redacted network fingerprint",
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest, input StatusInput) (*mcpsdk.CallToolResult, StatusOutput, error) {
		out, err := s.Status(ctx, input)
		if err != nil {
			return nil, StatusOutput{}, err
		}

		return &mcpsdk.CallToolResult{
			Content: []mcpsdk.Content{
				&mcpsdk.TextContent{Text: out.Report},
			},
		}, *out, nil
	})
}

// Run serves the MCP tools over stdio until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	server := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    "netid",
		Version: s.version,
	}, nil)
	s.register(server)

	if err := server.Run(ctx, &mcpsdk.StdioTransport{}); err != nil {
		s.log.WithError(err).Error("MCP server failed")
		return err
	}
	return nil
}
