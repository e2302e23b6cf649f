package esm

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/your-org/mme-s1ap-core/internal/config"
)

type recordingSink struct {
	mu                 sync.Mutex
	deactivateRequests int
	released           []BearerID
	completed          []BearerID
	notify             chan struct{}
}

func newRecordingSink() *recordingSink {
	return &recordingSink{notify: make(chan struct{}, 16)}
}

func (s *recordingSink) SendDeactivateRequest(mmeUEID uint32, pti TransactionID, ebi BearerID, cause Cause) {
	s.mu.Lock()
	s.deactivateRequests++
	s.mu.Unlock()
	s.notify <- struct{}{}
}

func (s *recordingSink) NotifyDeactivationComplete(mmeUEID uint32, ebi BearerID) {
	s.mu.Lock()
	s.completed = append(s.completed, ebi)
	s.mu.Unlock()
	s.notify <- struct{}{}
}

func (s *recordingSink) ReleaseBearer(mmeUEID uint32, ebi BearerID) {
	s.mu.Lock()
	s.released = append(s.released, ebi)
	s.mu.Unlock()
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deactivateRequests
}

func testConfig(deactivateTimer time.Duration) *config.Config {
	cfg := config.Defaults()
	cfg.Timers.ESMDeactivate = deactivateTimer
	return cfg
}

func TestInitiateRejectsMissingPDN(t *testing.T) {
	sink := newRecordingSink()
	table := NewTable(testConfig(time.Second), sink, zap.NewNop())

	_, err := table.Initiate(1, 1, 5, 6, 1, false)
	assert.ErrorIs(t, err, ErrPDNNotFound)
}

func TestInitiateSendsFirstRequestAndArmsState(t *testing.T) {
	sink := newRecordingSink()
	table := NewTable(testConfig(time.Hour), sink, zap.NewNop())

	p, err := table.Initiate(1, 1, 5, 6, 1, true)
	require.NoError(t, err)
	assert.Equal(t, BearerID(6), p.TargetEBI)
	assert.Equal(t, 1, sink.count())
	assert.Equal(t, 1, table.Count())
}

func TestAcceptStopsTimerAndReleasesBearer(t *testing.T) {
	sink := newRecordingSink()
	table := NewTable(testConfig(time.Hour), sink, zap.NewNop())

	_, err := table.Initiate(1, 1, 5, 6, 1, true)
	require.NoError(t, err)

	require.NoError(t, table.Accept(1, 6))
	assert.Equal(t, 0, table.Count())
	assert.Equal(t, []BearerID{6}, sink.released)
}

func TestAcceptUnknownProcedureReturnsErrUnknown(t *testing.T) {
	sink := newRecordingSink()
	table := NewTable(testConfig(time.Hour), sink, zap.NewNop())

	err := table.Accept(1, 6)
	assert.ErrorIs(t, err, ErrUnknown)
}

// TestTimeoutRetransmitsUntilBoundThenExhausts drives the deactivation
// timer to expire five times with a very short timer, and asserts
// exactly MaxRetransmissions-1 retransmissions happen before the
// procedure is released locally and reported upward, matching
// spec.md section 4.4's bounded-retransmission behavior.
func TestTimeoutRetransmitsUntilBoundThenExhausts(t *testing.T) {
	sink := newRecordingSink()
	table := NewTable(testConfig(5*time.Millisecond), sink, zap.NewNop())

	_, err := table.Initiate(7, 2, 1, 9, 1, true)
	require.NoError(t, err)

	// Initial send plus MaxRetransmissions-1 further retransmissions
	// before the counter reaches MaxRetransmissions and the procedure
	// is released locally.
	deadline := time.After(2 * time.Second)
	for i := 0; i < MaxRetransmissions; i++ {
		select {
		case <-sink.notify:
		case <-deadline:
			t.Fatal("timed out waiting for retransmission/completion notification")
		}
	}

	// One more notification for NotifyDeactivationComplete beyond the
	// MaxRetransmissions sends already drained above.
	select {
	case <-sink.notify:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for completion notification")
	}

	assert.Equal(t, MaxRetransmissions, sink.count())
	assert.Equal(t, []BearerID{9}, sink.released)
	assert.Equal(t, []BearerID{9}, sink.completed)
	assert.Equal(t, 0, table.Count(), "procedure must be freed once the retransmission bound is reached")
}

func TestRetransmitCounterReporting(t *testing.T) {
	sink := newRecordingSink()
	table := NewTable(testConfig(time.Hour), sink, zap.NewNop())

	_, err := table.Initiate(1, 1, 5, 6, 1, true)
	require.NoError(t, err)

	count, ok := table.RetransmitCounter(1, 6)
	require.True(t, ok)
	assert.Equal(t, 0, count)

	_, ok = table.RetransmitCounter(1, 99)
	assert.False(t, ok)
}
