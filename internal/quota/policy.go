// Package quota decides whether an action fits an account's daily allowance.
//
// Everything here is pure: functions take the account by value, never touch
// storage, and read time only from the instant they are given.
package quota

import (
	"time"

	"chat-assistant-server/internal/domain"
)

// DefaultDailyLimit is the number of plain messages a non-premium account may
// send per calendar day.
const DefaultDailyLimit = 7

// Policy carries the quota parameters. Location defines the calendar day: a
// day starts at local midnight in Location.
type Policy struct {
	DailyLimit int
	Location   *time.Location
}

// NewPolicy builds a policy, falling back to DefaultDailyLimit and UTC.
func NewPolicy(dailyLimit int, loc *time.Location) Policy {
	if dailyLimit <= 0 {
		dailyLimit = DefaultDailyLimit
	}
	if loc == nil {
		loc = time.UTC
	}
	return Policy{DailyLimit: dailyLimit, Location: loc}
}

// Result is the outcome of one evaluation. Account is the state to persist
// when Allowed; on rejection it equals the input.
type Result struct {
	Allowed bool
	Account domain.Account
	Reason  domain.RejectReason
}

// Evaluate applies the policy to one action at instant now. The account must
// already have had its premium expiry resolved.
func (p Policy) Evaluate(account domain.Account, action domain.Action, now time.Time) Result {
	account = account.Clone()

	if account.IsPremium {
		return Result{Allowed: true, Account: account}
	}

	if action.Kind == domain.ActionImageGeneration {
		return Result{Account: account, Reason: domain.ReasonPremiumRequired}
	}

	used := p.UsedOn(account, now)
	if used >= p.limit() {
		return Result{Account: account, Reason: domain.ReasonQuotaExceeded}
	}

	account.DailyMessageCount = used + 1
	account.LastMessageDate = now
	return Result{Allowed: true, Account: account}
}

// UsedOn returns the effective message count for the calendar day of now.
func (p Policy) UsedOn(account domain.Account, now time.Time) int {
	if !p.SameDay(account.LastMessageDate, now) {
		return 0
	}
	return account.DailyMessageCount
}

// Remaining returns how many plain messages are left today, or -1 when the
// account is premium and therefore unmetered.
func (p Policy) Remaining(account domain.Account, now time.Time) int {
	if account.IsPremium {
		return -1
	}
	left := p.limit() - p.UsedOn(account, now)
	if left < 0 {
		return 0
	}
	return left
}

// SameDay reports whether a and b fall on the same calendar day in the
// policy location.
func (p Policy) SameDay(a, b time.Time) bool {
	loc := p.location()
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// NextReset returns the start of the calendar day following now.
func (p Policy) NextReset(now time.Time) time.Time {
	loc := p.location()
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, loc)
}

func (p Policy) limit() int {
	if p.DailyLimit <= 0 {
		return DefaultDailyLimit
	}
	return p.DailyLimit
}

func (p Policy) location() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}
