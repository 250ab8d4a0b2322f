package dispatch

import (
	"time"

	"github.com/tener/recruit-core/internal/domain"
	"github.com/tener/recruit-core/internal/platform/envutil"
)

// BudgetPolicy bounds outbound traffic per sender account: daily new
// threads, weekly connect invites, and a warmup ramp that keeps
// freshly-connected accounts under a reduced invite cap.
type BudgetPolicy struct {
	DailyMaxNewThreads int
	WeeklyConnectCap   int
	WarmupDays         int
	WarmupConnectCap   int
}

func LoadPolicy() BudgetPolicy {
	return BudgetPolicy{
		DailyMaxNewThreads: envutil.Int("DISPATCH_DAILY_MAX_NEW_THREADS", 25),
		WeeklyConnectCap:   envutil.Int("DISPATCH_WEEKLY_CONNECT_CAP", 100),
		WarmupDays:         envutil.Int("DISPATCH_WARMUP_DAYS", 14),
		WarmupConnectCap:   envutil.Int("DISPATCH_WARMUP_CONNECT_CAP", 25),
	}
}

// ConnectCapFor returns the weekly connect-invite cap for an account,
// reduced while the account is still inside its warmup window.
func (p BudgetPolicy) ConnectCapFor(account *domain.SenderAccount, now time.Time) int {
	if account.ConnectedAt != nil && p.WarmupDays > 0 {
		age := now.Sub(*account.ConnectedAt)
		if age < time.Duration(p.WarmupDays)*24*time.Hour && p.WarmupConnectCap < p.WeeklyConnectCap {
			return p.WarmupConnectCap
		}
	}
	return p.WeeklyConnectCap
}

// DayKey is the UTC calendar day the daily counters are keyed by.
func DayKey(now time.Time) string {
	return now.UTC().Format("2006-01-02")
}

// WeekKey is the Monday (UTC) starting the week the connect counters
// are keyed by.
func WeekKey(now time.Time) string {
	t := now.UTC()
	back := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -back).Format("2006-01-02")
}
