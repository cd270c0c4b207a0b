package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"strings"
	"sync"

	"recap/internal/api"
	"recap/internal/daemon"
	"recap/internal/logging"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	rpcServer := rpc.NewServer()
	svc := &service{
		daemon: d,
		logger: logging.NewComponentLogger(logger, "ipc"),
		ctx:    serverCtx,
	}
	if err := rpcServer.RegisterName("Recap", svc); err != nil {
		cancel()
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	return &Server{
		path:      path,
		daemon:    d,
		logger:    logging.NewComponentLogger(logger, "ipc"),
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("ipc server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status()
	resp.Running = status.Running
	resp.PID = status.PID
	resp.SocketPath = status.SocketPath
	resp.LockPath = status.LockFilePath
	resp.Workers = status.Pipeline.Workers
	resp.Queued = status.Pipeline.Queued
	resp.ActiveJobs = status.Pipeline.Jobs.Active
	resp.CompletedJobs = status.Pipeline.Jobs.Completed
	resp.FailedJobs = status.Pipeline.Jobs.Failed
	if status.LastJob != nil {
		job := api.FromJob(*status.LastJob)
		resp.LastJob = &job
	}
	if len(status.Dependencies) > 0 {
		resp.Dependencies = api.FromDependencies(status.Dependencies)
	}
	return nil
}

func (s *service) Submit(req SubmitRequest, resp *SubmitResponse) error {
	job, err := s.daemon.Submit(req.Source, req.Options.SummarizeOptions())
	if err != nil {
		return err
	}
	resp.Job = api.FromJob(job)
	s.log().Info("job submitted via ipc",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("source", job.InputRef))
	return nil
}

func (s *service) Jobs(_ JobsRequest, resp *JobsResponse) error {
	active, completed := s.daemon.Jobs()
	resp.Active = api.FromJobs(active)
	resp.Completed = api.FromJobs(completed)
	return nil
}

func (s *service) Job(req JobRequest, resp *JobResponse) error {
	id := strings.TrimSpace(req.ID)
	if id == "" {
		return errors.New("job id is required")
	}
	job, ok := s.daemon.Job(id)
	if !ok {
		return fmt.Errorf("job %s not found", id)
	}
	resp.Job = api.FromJob(job)
	return nil
}

func (s *service) Health(_ HealthRequest, resp *HealthResponse) error {
	report := s.daemon.Health(s.ctx)
	resp.Healthy = report.Healthy
	resp.Components = report.Components
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
