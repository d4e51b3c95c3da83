package domain

import "time"

// EventKind identifica un evento emitido por una transición aceptada.
type EventKind string

const (
	EventMarketCreated          EventKind = "market_created"
	EventBetPlaced              EventKind = "bet_placed"
	EventLeaderChanged          EventKind = "leader_changed"
	EventVelocityLimitTriggered EventKind = "velocity_limit_triggered"
	EventBettingClosed          EventKind = "betting_closed"
	EventResolutionVoteCast     EventKind = "resolution_vote_cast"
	EventMarketResolved         EventKind = "market_resolved"
	EventWinningsClaimed        EventKind = "winnings_claimed"
	EventVoterStakeSettled      EventKind = "voter_stake_settled"
	EventMarketPausedChanged    EventKind = "market_paused_changed"
)

// Event es un registro plano de lo que pasó. Solo se rellenan los campos
// que aplican a su Kind.
type Event struct {
	Kind      EventKind `json:"kind"`
	MarketID  string    `json:"market_id"`
	Actor     string    `json:"actor,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	Option  *int     `json:"option,omitempty"`
	Amount  uint64   `json:"amount,omitempty"`
	Slashed uint64   `json:"slashed,omitempty"`
	Pool    uint64   `json:"pool,omitempty"` // TotalPool tras el evento
	Odds    []uint64 `json:"odds,omitempty"`
	Limit   uint64   `json:"limit,omitempty"`

	EndTime      *time.Time `json:"end_time,omitempty"`
	OptionsCount int        `json:"options_count,omitempty"`

	Winner      *Outcome `json:"winner,omitempty"`
	WinningPool uint64   `json:"winning_pool,omitempty"`
	Refund      bool     `json:"refund,omitempty"`
	Paused      *bool    `json:"paused,omitempty"`
}

func intPtr(v int) *int { return &v }

// VelocityEvent construye el evento de una apuesta rechazada por velocity limit.
// No sale de Apply: la apuesta no se aceptó y el mercado no cambió.
func VelocityEvent(marketID, bettor string, ts time.Time, verr *VelocityError) Event {
	return Event{
		Kind:      EventVelocityLimitTriggered,
		MarketID:  marketID,
		Actor:     bettor,
		Timestamp: ts,
		Amount:    verr.Attempted,
		Limit:     verr.Limit,
	}
}
