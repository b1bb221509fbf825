package event

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// flexFloat unmarshals a JSON number or a numeric string. The clearinghouse
// logs encode most quantities as strings but not consistently.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		*f = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number: %q", s)
	}
	*f = flexFloat(v)
	return nil
}

// Fill is one (account, fill) pair from a node_fills block.
type Fill struct {
	User           string
	Coin           string
	Price          float64
	Size           float64
	Side           string
	Direction      string
	ClosedPnl      float64
	Fee            float64
	StartPosition  float64
	Time           int64 // unix ms, from the fill record itself
	LiquidatedUser string
}

// IsADL reports whether the fill's direction label marks forced deleveraging.
func (f Fill) IsADL() bool {
	return strings.Contains(f.Direction, dirADL)
}

// IsSpot reports whether the fill is on a spot market.
func (f Fill) IsSpot() bool {
	return IsSpotCoin(f.Coin)
}

// Notional returns size x price as reported, sign included.
func (f Fill) Notional() float64 {
	return f.Size * f.Price
}

// Event converts the fill into a replay event.
func (f Fill) Event() Event {
	return Event{
		Kind:           KindFill,
		Time:           f.Time,
		User:           f.User,
		Coin:           f.Coin,
		Price:          f.Price,
		Size:           f.Size,
		Side:           f.Side,
		Direction:      f.Direction,
		ClosedPnl:      f.ClosedPnl,
		Fee:            f.Fee,
		StartPosition:  f.StartPosition,
		LiquidatedUser: f.LiquidatedUser,
	}
}

// FillBlock is one parsed node_fills line: a block timestamp and the fills
// that settled in it.
type FillBlock struct {
	Time  time.Time
	Fills []Fill
}

type rawFillBlock struct {
	BlockTime string            `json:"block_time"`
	Events    []json.RawMessage `json:"events"`
}

type rawFill struct {
	Coin          string    `json:"coin"`
	Px            flexFloat `json:"px"`
	Sz            flexFloat `json:"sz"`
	Side          string    `json:"side"`
	Time          int64     `json:"time"`
	Dir           string    `json:"dir"`
	ClosedPnl     flexFloat `json:"closedPnl"`
	Fee           flexFloat `json:"fee"`
	StartPosition flexFloat `json:"startPosition"`
	Liquidation   *struct {
		LiquidatedUser string `json:"liquidatedUser"`
	} `json:"liquidation"`
}

type rawMiscBlock struct {
	Events []rawMiscEvent `json:"events"`
}

type rawMiscEvent struct {
	Time  string `json:"time"`
	Inner struct {
		Funding *struct {
			Deltas []struct {
				User          string    `json:"user"`
				Coin          string    `json:"coin"`
				FundingAmount flexFloat `json:"funding_amount"`
			} `json:"deltas"`
		} `json:"Funding"`
		LedgerUpdate *struct {
			Users []string `json:"users"`
			Delta struct {
				Type   string    `json:"type"`
				USDC   flexFloat `json:"usdc"`
				ToPerp bool      `json:"toPerp"`
			} `json:"delta"`
		} `json:"LedgerUpdate"`
	} `json:"inner"`
}

// Parser decodes raw log lines into typed events, routing malformed
// records through Diagnostics instead of failing the run.
type Parser struct {
	diags *Diagnostics
}

func NewParser(diags *Diagnostics) *Parser {
	return &Parser{diags: diags}
}

// ParseFillBlock decodes one node_fills line. Returns ok=false only when
// the line is not valid JSON. A missing or unparseable block_time leaves
// Time zero (the fills themselves carry their own timestamps, so replay
// still uses them; window filters exclude the zero time); malformed pairs
// inside an otherwise good block are skipped with a diagnostic.
func (p *Parser) ParseFillBlock(line []byte) (FillBlock, bool) {
	var raw rawFillBlock
	if err := json.Unmarshal(line, &raw); err != nil {
		p.diags.Skip(SkipBadJSON, err.Error())
		return FillBlock{}, false
	}

	var block FillBlock
	if raw.BlockTime == "" {
		p.diags.Skip(SkipMissingTimestamp, "fill block without block_time")
	} else if blockTime, err := ParseBlockTime(raw.BlockTime); err != nil {
		p.diags.Skip(SkipBadTimestamp, err.Error())
	} else {
		block.Time = blockTime
	}
	for _, rawEvent := range raw.Events {
		fill, ok := p.parseFillPair(rawEvent)
		if !ok {
			continue
		}
		block.Fills = append(block.Fills, fill)
	}
	return block, true
}

// parseFillPair decodes a single [user, fill] tuple.
func (p *Parser) parseFillPair(raw json.RawMessage) (Fill, bool) {
	var pair []json.RawMessage
	if err := json.Unmarshal(raw, &pair); err != nil || len(pair) < 2 {
		p.diags.Skip(SkipBadEventShape, "fill event is not a [user, fill] pair")
		return Fill{}, false
	}

	var user string
	if err := json.Unmarshal(pair[0], &user); err != nil || user == "" {
		p.diags.Skip(SkipBadEventShape, "fill event without user")
		return Fill{}, false
	}

	var rf rawFill
	if err := json.Unmarshal(pair[1], &rf); err != nil {
		p.diags.Skip(SkipBadEventShape, err.Error())
		return Fill{}, false
	}

	fill := Fill{
		User:          user,
		Coin:          rf.Coin,
		Price:         float64(rf.Px),
		Size:          float64(rf.Sz),
		Side:          rf.Side,
		Direction:     rf.Dir,
		ClosedPnl:     float64(rf.ClosedPnl),
		Fee:           float64(rf.Fee),
		StartPosition: float64(rf.StartPosition),
		Time:          rf.Time,
	}
	if rf.Liquidation != nil {
		fill.LiquidatedUser = rf.Liquidation.LiquidatedUser
	}
	return fill, true
}

// ParseMiscBlock decodes one funding/ledger line into replay events.
// Funding fans out one event per delta; ledger updates fan out one event
// per affected user.
func (p *Parser) ParseMiscBlock(line []byte) ([]Event, bool) {
	var raw rawMiscBlock
	if err := json.Unmarshal(line, &raw); err != nil {
		p.diags.Skip(SkipBadJSON, err.Error())
		return nil, false
	}

	var out []Event
	for _, me := range raw.Events {
		if me.Time == "" {
			p.diags.Skip(SkipMissingTimestamp, "misc event without time")
			continue
		}
		t, err := ParseBlockTime(me.Time)
		if err != nil {
			p.diags.Skip(SkipBadTimestamp, err.Error())
			continue
		}
		ms := t.UnixMilli()

		if funding := me.Inner.Funding; funding != nil {
			for _, delta := range funding.Deltas {
				out = append(out, Event{
					Kind:          KindFunding,
					Time:          ms,
					User:          delta.User,
					Coin:          delta.Coin,
					FundingAmount: float64(delta.FundingAmount),
				})
			}
		}

		if ledger := me.Inner.LedgerUpdate; ledger != nil {
			usdc := float64(ledger.Delta.USDC)
			switch ledger.Delta.Type {
			case "deposit":
				for _, user := range ledger.Users {
					out = append(out, Event{Kind: KindDeposit, Time: ms, User: user, Amount: usdc})
				}
			case "withdraw":
				for _, user := range ledger.Users {
					out = append(out, Event{Kind: KindWithdrawal, Time: ms, User: user, Amount: usdc})
				}
			case "accountClassTransfer":
				amount := usdc
				if !ledger.Delta.ToPerp {
					amount = -usdc
				}
				for _, user := range ledger.Users {
					out = append(out, Event{Kind: KindTransfer, Time: ms, User: user, Amount: amount})
				}
			default:
				p.diags.Skip(SkipUnknownLedgerType, ledger.Delta.Type)
			}
		}
	}
	return out, true
}
