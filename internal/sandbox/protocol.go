package sandbox

import (
	"fmt"
	"io"
	"log/slog"
	"net/rpc"
	"net/rpc/jsonrpc"

	"bayloe/internal/logging"
)

// ServiceName is the RPC service registered by workers.
const ServiceName = "Decoder"

const (
	methodReady  = ServiceName + ".Ready"
	methodDecode = ServiceName + ".Decode"
)

// ReadyRequest is the launch handshake.
type ReadyRequest struct{}

// ReadyResponse identifies the worker that answered.
type ReadyResponse struct {
	Instance int64 `json:"instance"`
	PID      int   `json:"pid"`
}

// DecodeRequest asks the worker to decode Data and re-encode it.
type DecodeRequest struct {
	Data     []byte  `json:"data"`
	Encoding string  `json:"encoding"`
	Quality  float64 `json:"quality"`
}

// DecodeResponse carries the encoded image and the generation that made it.
type DecodeResponse struct {
	Instance int64  `json:"instance"`
	Data     []byte `json:"data"`
}

// Backend performs the decode inside the worker process.
type Backend interface {
	Decode(data []byte, encoding string, quality float64) ([]byte, error)
}

type service struct {
	instance int64
	pid      int
	backend  Backend
	logger   *slog.Logger
}

func (s *service) Ready(_ ReadyRequest, resp *ReadyResponse) error {
	resp.Instance = s.instance
	resp.PID = s.pid
	return nil
}

func (s *service) Decode(req DecodeRequest, resp *DecodeResponse) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decoder panic: %v", r)
		}
	}()
	data, err := s.backend.Decode(req.Data, req.Encoding, req.Quality)
	if err != nil {
		s.logger.Debug("decode rejected", logging.Error(err))
		return err
	}
	resp.Instance = s.instance
	resp.Data = data
	return nil
}

// Serve answers requests on conn until the peer hangs up.
func Serve(conn io.ReadWriteCloser, instance int64, pid int, backend Backend, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.NewNop()
	}
	server := rpc.NewServer()
	svc := &service{instance: instance, pid: pid, backend: backend, logger: logger}
	if err := server.RegisterName(ServiceName, svc); err != nil {
		return fmt.Errorf("register rpc service: %w", err)
	}
	server.ServeCodec(jsonrpc.NewServerCodec(conn))
	return nil
}
