package curve

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Notice is a user facing message about a token event
type Notice struct {
	Token   common.Address `json:"token"`
	Event   EventName      `json:"event"`
	Message string         `json:"message"`
	Time    time.Time      `json:"time"`
}

// Notifier forwards notices with a global cooldown, notices within the cooldown are dropped
type Notifier struct {
	logger  logrus.FieldLogger
	handler func(*Notice)
	now     func() time.Time

	mutex      sync.Mutex
	limiter    *rate.Limiter
	suppressed uint64
}

func NewNotifier(cooldown time.Duration, logger logrus.FieldLogger, handler func(*Notice)) *Notifier {
	limit := rate.Inf
	if cooldown > 0 {
		limit = rate.Every(cooldown)
	}

	return &Notifier{
		logger:  logger,
		handler: handler,
		now:     time.Now,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Notify emits notice unless the cooldown is active. Returns true if the notice was emitted.
func (n *Notifier) Notify(notice *Notice) bool {
	n.mutex.Lock()
	if notice.Time.IsZero() {
		notice.Time = n.now()
	}
	if !n.limiter.AllowN(n.now(), 1) {
		n.suppressed++
		n.mutex.Unlock()
		notificationsSuppressedTotal.Inc()
		return false
	}
	n.mutex.Unlock()

	n.logger.WithFields(logrus.Fields{
		"token": notice.Token.Hex(),
		"event": notice.Event,
	}).Info(notice.Message)

	if n.handler != nil {
		n.handler(notice)
	}

	return true
}

// Suppressed returns the number of notices dropped by the cooldown
func (n *Notifier) Suppressed() uint64 {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	return n.suppressed
}

// NoticeForEvent builds the notice text of a factory event
func NoticeForEvent(ev *Event) *Notice {
	notice := &Notice{
		Token: ev.Token,
		Event: ev.Name,
	}

	switch data := ev.Data.(type) {
	case *TokenCreated:
		notice.Message = "token " + data.Symbol + " created"
	case *TokensPurchased:
		notice.Message = "tokens purchased: " + FromBaseUnits(data.Amount, nativeDecimals).String()
	case *TokensSold:
		notice.Message = "tokens sold: " + FromBaseUnits(data.TokenAmount, nativeDecimals).String()
	case *TradingHalted:
		notice.Message = "trading halted, funding goal reached"
	case *TradingResumed:
		notice.Message = "trading resumed"
	default:
		notice.Message = string(ev.Name)
	}

	return notice
}
