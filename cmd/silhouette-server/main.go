package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"google.golang.org/grpc"

	apiv1 "github.com/mundrapranay/silhouette-coloring/api/v1"
	"github.com/mundrapranay/silhouette-coloring/internal/logging"
	"github.com/mundrapranay/silhouette-coloring/internal/metrics"
	"github.com/mundrapranay/silhouette-coloring/internal/server"
	"github.com/mundrapranay/silhouette-coloring/internal/store"
)

var (
	nodeID      = flag.String("node-id", "", "Unique ID for this node")
	listenAddr  = flag.String("listen-addr", "127.0.0.1:8080", "Address to listen for Raft communication")
	grpcAddr    = flag.String("grpc-addr", "127.0.0.1:9090", "Address to listen for gRPC API")
	dataDir     = flag.String("data-dir", "./data", "Directory to store Raft logs and snapshots")
	bootstrap   = flag.Bool("bootstrap", false, "Bootstrap a new cluster (first node)")
	peers       = flag.String("peers", "", "Comma-separated id=raft-addr voters added once this node leads")
	inMemory    = flag.Bool("in-memory", false, "Keep Raft state in memory (single node only)")
	logLevel    = flag.String("log-level", "info", "Log level: trace, debug, info, warn, error")
	metricsAddr = flag.String("metrics-addr", "", "Address to serve Prometheus metrics on (disabled if empty)")
	leaderWait  = flag.Duration("leader-timeout", 30*time.Second, "How long to wait for leadership when bootstrapping")
)

func main() {
	flag.Parse()

	logger := logging.New("silhouette-server", *logLevel)

	if *nodeID == "" {
		logger.Error("node-id is required")
		os.Exit(1)
	}

	s, err := store.NewStore(store.Config{
		NodeID:           *nodeID,
		ListenAddr:       *listenAddr,
		DataDir:          *dataDir,
		Bootstrap:        *bootstrap,
		HeartbeatTimeout: 1000 * time.Millisecond,
		ElectionTimeout:  1000 * time.Millisecond,
		CommitTimeout:    50 * time.Millisecond,
		InMemory:         *inMemory,
		Logger:           logger,
	})
	if err != nil {
		logger.Error("failed to create store", "error", err)
		os.Exit(1)
	}
	defer s.Shutdown()

	lis, err := net.Listen("tcp", *grpcAddr)
	if err != nil {
		logger.Error("failed to listen", "addr", *grpcAddr, "error", err)
		os.Exit(1)
	}

	grpcSrv := grpc.NewServer()
	apiv1.RegisterCoordinationServiceServer(grpcSrv, server.NewServer(s, logger))

	logger.Info("starting gRPC server", "addr", *grpcAddr)
	go func() {
		if err := grpcSrv.Serve(lis); err != nil {
			logger.Error("gRPC server stopped", "error", err)
			os.Exit(1)
		}
	}()

	var metricsSrv *http.Server
	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsSrv = &http.Server{Addr: *metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
		logger.Info("serving metrics", "addr", *metricsAddr)
	}

	if *bootstrap {
		logger.Info("bootstrapping cluster")
		ctx, cancel := context.WithTimeout(context.Background(), *leaderWait)
		err := s.WaitForLeader(ctx)
		cancel()
		if err != nil {
			logger.Error("did not become leader", "error", err)
			os.Exit(1)
		}
		logger.Info("became leader")
		addPeers(s, *peers, logger)
	}

	logger.Info("node ready", "node", *nodeID, "raft", s.Addr(), "grpc", *grpcAddr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	grpcSrv.GracefulStop()
	if metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(ctx)
	}
}

// addPeers joins each id=addr entry of list as a voter. Failures are logged
// and skipped so a missing peer does not take the leader down.
func addPeers(s *store.Store, list string, logger hclog.Logger) {
	if list == "" {
		return
	}
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		id, addr, ok := strings.Cut(entry, "=")
		if !ok || id == "" || addr == "" {
			logger.Warn("invalid peer entry, expected id=addr", "entry", entry)
			continue
		}
		if err := s.AddPeer(id, addr); err != nil {
			logger.Warn("failed to add peer", "peer", id, "addr", addr, "error", err)
			continue
		}
		logger.Info("added peer", "peer", id, "addr", addr)
	}
}
