package curve

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifierCooldown(t *testing.T) {
	logger, hook := test.NewNullLogger()
	clock := newTestClock()

	delivered := []*Notice{}
	notifier := NewNotifier(10*time.Second, logger, func(notice *Notice) {
		delivered = append(delivered, notice)
	})
	notifier.now = clock.Now

	assert.True(t, notifier.Notify(&Notice{Token: testToken, Event: EventTokensPurchased, Message: "first"}))
	assert.False(t, notifier.Notify(&Notice{Token: testToken, Event: EventTokensPurchased, Message: "second"}))

	clock.Advance(5 * time.Second)
	assert.False(t, notifier.Notify(&Notice{Token: testToken2, Event: EventTokensSold, Message: "third"}))

	clock.Advance(5 * time.Second)
	assert.True(t, notifier.Notify(&Notice{Token: testToken2, Event: EventTokensSold, Message: "fourth"}))

	require.Len(t, delivered, 2)
	assert.Equal(t, "first", delivered[0].Message)
	assert.Equal(t, "fourth", delivered[1].Message)
	assert.False(t, delivered[0].Time.IsZero())
	assert.Equal(t, uint64(2), notifier.Suppressed())

	infos := 0
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.InfoLevel {
			infos++
		}
	}
	assert.Equal(t, 2, infos)
}

func TestNotifierWithoutCooldown(t *testing.T) {
	logger, _ := test.NewNullLogger()
	notifier := NewNotifier(0, logger, nil)

	for i := 0; i < 5; i++ {
		assert.True(t, notifier.Notify(&Notice{Token: testToken, Message: "notice"}))
	}
	assert.Equal(t, uint64(0), notifier.Suppressed())
}

func TestNoticeForEvent(t *testing.T) {
	tests := []struct {
		name     string
		event    *Event
		expected string
	}{
		{
			name:     "created",
			event:    &Event{Name: EventTokenCreated, Token: testToken, Data: &TokenCreated{Token: testToken, Symbol: "CRV"}},
			expected: "token CRV created",
		},
		{
			name:     "purchased",
			event:    &Event{Name: EventTokensPurchased, Token: testToken, Data: &TokensPurchased{Token: testToken, Amount: ether("12.5")}},
			expected: "tokens purchased: 12.5",
		},
		{
			name:     "sold",
			event:    &Event{Name: EventTokensSold, Token: testToken, Data: &TokensSold{Token: testToken, TokenAmount: ether("3")}},
			expected: "tokens sold: 3",
		},
		{
			name:     "halted",
			event:    &Event{Name: EventTradingHalted, Token: testToken, Data: &TradingHalted{Token: testToken}},
			expected: "trading halted, funding goal reached",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notice := NoticeForEvent(tt.event)
			assert.Equal(t, tt.expected, notice.Message)
			assert.Equal(t, tt.event.Name, notice.Event)
			assert.Equal(t, testToken, notice.Token)
		})
	}
}
