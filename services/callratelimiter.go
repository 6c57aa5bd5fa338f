package services

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"

	"github.com/ethpandaops/curvewatch/metrics"
)

const visitorTimeout = 3 * time.Minute

var (
	rateLimiterVisitors = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "curvewatch_call_rate_limiter_visitors_count",
		Help: "Number of visitors in the call rate limiter",
	})
	rateLimiterNewVisitors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "curvewatch_call_rate_limiter_new_visitors_count",
		Help: "Number of new visitors in the call rate limiter",
	})
	rateLimiterRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "curvewatch_call_rate_limiter_rejected_count",
		Help: "Number of api calls rejected by the call rate limiter",
	})
)

// CallRateLimiter limits api calls per client ip
type CallRateLimiter struct {
	proxyCount uint
	rateLimit  uint
	burstLimit uint
	now        func() time.Time

	mutex    sync.Mutex
	visitors map[string]*callRateVisitor
}

type callRateVisitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

var GlobalCallRateLimiter *CallRateLimiter

func NewCallRateLimiter(proxyCount uint, rateLimit uint, burstLimit uint) *CallRateLimiter {
	return &CallRateLimiter{
		proxyCount: proxyCount,
		rateLimit:  rateLimit,
		burstLimit: burstLimit,
		now:        time.Now,
		visitors:   map[string]*callRateVisitor{},
	}
}

// StartCallRateLimiter is used to start the global call rate limiter
func StartCallRateLimiter(ctx context.Context, proxyCount uint, rateLimit uint, burstLimit uint) error {
	if GlobalCallRateLimiter != nil {
		return nil
	}
	if rateLimit == 0 {
		return fmt.Errorf("invalid call rate limit: %v", rateLimit)
	}

	GlobalCallRateLimiter = NewCallRateLimiter(proxyCount, rateLimit, burstLimit)
	go GlobalCallRateLimiter.runCleanupLoop(ctx)

	metrics.AddPreCollectFn(func() {
		rateLimiterVisitors.Set(float64(GlobalCallRateLimiter.VisitorCount()))
	})

	return nil
}

// CheckCallLimit consumes callCost tokens of the requesting visitor. A nil limiter allows every call.
func (crl *CallRateLimiter) CheckCallLimit(r *http.Request, callCost uint) error {
	if crl == nil {
		return nil
	}
	visitor := crl.getVisitor(r)
	if visitor == nil {
		return fmt.Errorf("could not get visitor")
	}
	if !visitor.limiter.AllowN(crl.now(), int(callCost)) {
		rateLimiterRejected.Inc()
		return fmt.Errorf("call rate limit exceeded")
	}
	return nil
}

func (crl *CallRateLimiter) VisitorCount() int {
	crl.mutex.Lock()
	defer crl.mutex.Unlock()

	return len(crl.visitors)
}

func (crl *CallRateLimiter) getVisitor(r *http.Request) *callRateVisitor {
	var ip string

	if crl.proxyCount > 0 {
		forwardIps := strings.Split(r.Header.Get("X-Forwarded-For"), ", ")
		forwardIdx := len(forwardIps) - int(crl.proxyCount)
		if forwardIdx >= 0 {
			ip = forwardIps[forwardIdx]
		}
	}
	if ip == "" {
		var err error
		ip, _, err = net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return nil
		}
	}

	crl.mutex.Lock()
	defer crl.mutex.Unlock()

	now := crl.now()
	visitor := crl.visitors[ip]
	if visitor == nil {
		visitor = &callRateVisitor{
			limiter:  rate.NewLimiter(rate.Limit(crl.rateLimit), int(crl.burstLimit)),
			lastSeen: now,
		}
		crl.visitors[ip] = visitor

		rateLimiterNewVisitors.Inc()
	} else {
		visitor.lastSeen = now
	}
	return visitor
}

func (crl *CallRateLimiter) runCleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			crl.cleanupVisitors()
		}
	}
}

func (crl *CallRateLimiter) cleanupVisitors() {
	crl.mutex.Lock()
	defer crl.mutex.Unlock()

	now := crl.now()
	for ip, v := range crl.visitors {
		if now.Sub(v.lastSeen) > visitorTimeout {
			delete(crl.visitors, ip)
		}
	}
}
