package services

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"MinimartApp/app/config"
	"MinimartApp/app/database"
)

const connectivityProbeTimeout = 10 * time.Second

// ConnectivityMonitor tracks whether the remote ledger is reachable. It
// starts offline; the first successful probe flips it online.
type ConnectivityMonitor struct {
	online atomic.Bool
}

// NewConnectivityMonitor returns a monitor in the offline state.
func NewConnectivityMonitor() *ConnectivityMonitor {
	return &ConnectivityMonitor{}
}

// IsOnline reports the last probe result.
func (m *ConnectivityMonitor) IsOnline() bool {
	return m.online.Load()
}

// SetOnline records a probe result and reports whether this call was an
// offline-to-online transition.
func (m *ConnectivityMonitor) SetOnline(online bool) (cameOnline bool) {
	prev := m.online.Swap(online)
	return online && !prev
}

// SyncWorker probes remote connectivity on an interval and drains the
// sync queue whenever the connection comes back, plus on every tick while
// entries are pending.
type SyncWorker struct {
	syncSvc  *SyncService
	ledger   database.RemoteLedger
	monitor  *ConnectivityMonitor
	interval time.Duration
	stopChan chan struct{}
	log      *logrus.Logger
}

// NewSyncWorker creates a sync worker. It does not start until Start is
// called.
func NewSyncWorker(syncSvc *SyncService, ledger database.RemoteLedger, monitor *ConnectivityMonitor, interval time.Duration) *SyncWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &SyncWorker{
		syncSvc:  syncSvc,
		ledger:   ledger,
		monitor:  monitor,
		interval: interval,
		stopChan: make(chan struct{}),
		log:      config.GetLogger(),
	}
}

// Start launches the worker loop in its own goroutine.
func (w *SyncWorker) Start() {
	go w.run()
}

// Stop terminates the worker loop.
func (w *SyncWorker) Stop() {
	close(w.stopChan)
}

func (w *SyncWorker) run() {
	w.log.WithField("interval", w.interval.String()).Info("sync worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.tick()
	for {
		select {
		case <-ticker.C:
			w.tick()
		case <-w.stopChan:
			w.log.Info("sync worker stopped")
			return
		}
	}
}

// tick runs one probe/drain cycle. After a fatal authorization failure
// the worker keeps probing but stops syncing; the policy problem needs
// operator intervention.
func (w *SyncWorker) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), connectivityProbeTimeout)
	err := w.ledger.Ping(ctx)
	cancel()

	cameOnline := w.monitor.SetOnline(err == nil)
	if err != nil {
		w.log.WithError(err).Debug("remote ledger unreachable")
		return
	}

	if w.syncSvc.FatalError() != nil {
		return
	}

	if cameOnline {
		w.log.Info("connection to remote ledger restored")
	}

	pending, qerr := w.syncSvc.QueueLength()
	if qerr != nil {
		w.log.WithError(qerr).Error("could not inspect sync queue")
		return
	}
	if !cameOnline && pending == 0 {
		return
	}

	syncCtx, cancelSync := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancelSync()
	if err := w.syncSvc.DrainAndRefresh(syncCtx); err != nil {
		if database.IsAuthorizationError(err) {
			w.log.WithError(err).Error("remote ledger denied access, sync halted until policies are fixed")
			return
		}
		w.log.WithError(err).Warn("sync pass failed")
	}
}
