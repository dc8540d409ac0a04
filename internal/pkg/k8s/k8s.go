package k8s

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	metaV1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/leaderelection"
	"k8s.io/client-go/tools/leaderelection/resourcelock"

	"aws-sqs-http-gateway/internal/pkg/logger"
)

// Client wraps a Kubernetes clientset.
type Client struct {
	Clientset kubernetes.Interface
}

// NewInCluster creates a client from the service account of the pod.
func NewInCluster() (*Client, error) {
	config, err := rest.InClusterConfig()
	if err != nil {
		return nil, fmt.Errorf("load in-cluster config: %w", err)
	}
	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("create clientset: %w", err)
	}
	return &Client{Clientset: clientset}, nil
}

// ElectionConfig names the Lease and the identity competing for it.
type ElectionConfig struct {
	Namespace     string
	LockName      string
	Identity      string
	LeaseDuration time.Duration
	RenewDeadline time.Duration
	RetryPeriod   time.Duration
}

func (c ElectionConfig) withDefaults() ElectionConfig {
	if c.LeaseDuration == 0 {
		c.LeaseDuration = 15 * time.Second
	}
	if c.RenewDeadline == 0 {
		c.RenewDeadline = 10 * time.Second
	}
	if c.RetryPeriod == 0 {
		c.RetryPeriod = 2 * time.Second
	}
	return c
}

// GetLeaseLock returns the Lease lock for cfg.
func (c *Client) GetLeaseLock(cfg ElectionConfig) *resourcelock.LeaseLock {
	return &resourcelock.LeaseLock{
		LeaseMeta: metaV1.ObjectMeta{
			Namespace: cfg.Namespace,
			Name:      cfg.LockName,
		},
		Client: c.Clientset.CoordinationV1(),
		LockConfig: resourcelock.ResourceLockConfig{
			Identity: cfg.Identity,
		},
	}
}

// RunLeaderElection blocks until ctx is done and lead has returned. lead runs
// with a context that is cancelled when leadership is lost.
func (c *Client) RunLeaderElection(ctx context.Context, cfg ElectionConfig, lead func(ctx context.Context)) error {
	cfg = cfg.withDefaults()
	lock := &heldLock{Interface: c.GetLeaseLock(cfg)}
	finished := make(chan struct{}, 1)
	elector, err := leaderelection.NewLeaderElector(leaderelection.LeaderElectionConfig{
		Lock:            lock,
		LeaseDuration:   cfg.LeaseDuration,
		RenewDeadline:   cfg.RenewDeadline,
		RetryPeriod:     cfg.RetryPeriod,
		ReleaseOnCancel: true,
		Callbacks: leaderelection.LeaderCallbacks{
			OnStartedLeading: func(ctx context.Context) {
				defer func() { finished <- struct{}{} }()
				logger.Info("Leader acquired", zap.String("identity", cfg.Identity))
				lead(ctx)
			},
			OnStoppedLeading: func() {
				logger.Info("Lost leadership", zap.String("identity", cfg.Identity))
			},
			OnNewLeader: func(id string) {
				if id == cfg.Identity {
					logger.Info("Current instance is the leader")
				} else {
					logger.Info("New leader elected", zap.String("leader", id))
				}
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create leader elector: %w", err)
	}

	// Run returns when leadership is lost; compete again until shutdown,
	// never while the previous term is still draining.
	for ctx.Err() == nil {
		lock.held.Store(false)
		elector.Run(ctx)
		if lock.held.Load() {
			<-finished
		}
	}
	return nil
}

// heldLock records whether this instance wrote the lease. The elector starts
// lead in its own goroutine exactly when it did.
type heldLock struct {
	resourcelock.Interface
	held atomic.Bool
}

func (l *heldLock) Create(ctx context.Context, ler resourcelock.LeaderElectionRecord) error {
	err := l.Interface.Create(ctx, ler)
	if err == nil {
		l.held.Store(true)
	}
	return err
}

func (l *heldLock) Update(ctx context.Context, ler resourcelock.LeaderElectionRecord) error {
	err := l.Interface.Update(ctx, ler)
	if err == nil {
		l.held.Store(true)
	}
	return err
}
