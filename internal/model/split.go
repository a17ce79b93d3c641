package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// LegMember carries the attributes of one kept security that downstream
// weighting, hedging and cost stages need. DailyDates, when present, holds the
// trading day of each daily return.
type LegMember struct {
	SecurityID         string      `json:"-"`
	CostAdjustedReturn float64     `json:"cost_adjusted_return"`
	DailyReturns       []float64   `json:"daily_returns"`
	DailyDates         []time.Time `json:"daily_dates,omitempty"`
	AvgMarketCap       float64     `json:"avg_market_cap"`
	AvgQuotedSpread    float64     `json:"avg_quoted_spread"`
}

// Leg is one side of the portfolio at a rebalance date. Members are ordered by
// final rank and the order survives a JSON round trip.
type Leg struct {
	Side    Side
	Members []LegMember
}

func (l Leg) Len() int { return len(l.Members) }

// Contains reports whether id is a member of the leg.
func (l Leg) Contains(id string) bool {
	for _, m := range l.Members {
		if m.SecurityID == id {
			return true
		}
	}
	return false
}

// IDs returns member ids in rank order.
func (l Leg) IDs() []string {
	out := make([]string, len(l.Members))
	for i, m := range l.Members {
		out[i] = m.SecurityID
	}
	return out
}

// Spreads maps member id to its average quoted spread.
func (l Leg) Spreads() map[string]float64 {
	out := make(map[string]float64, len(l.Members))
	for _, m := range l.Members {
		out[m.SecurityID] = m.AvgQuotedSpread
	}
	return out
}

// MarshalJSON writes the leg as {security_id: member} in rank order.
func (l Leg) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range l.Members {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(m.SecurityID)
		if err != nil {
			return nil, err
		}
		if err := checkFinite(m); err != nil {
			return nil, err
		}
		val, err := json.Marshal(m)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads {security_id: member} keeping document order.
func (l *Leg) UnmarshalJSON(raw []byte) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("leg: expected object, got %v", tok)
	}
	members := []LegMember{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		id, ok := tok.(string)
		if !ok {
			return fmt.Errorf("leg: expected security id, got %v", tok)
		}
		var m LegMember
		if err := dec.Decode(&m); err != nil {
			return fmt.Errorf("leg member %s: %w", id, err)
		}
		m.SecurityID = id
		members = append(members, m)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	l.Members = members
	return nil
}

func checkFinite(m LegMember) error {
	for _, v := range []float64{m.CostAdjustedReturn, m.AvgMarketCap, m.AvgQuotedSpread} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("leg member %s: non-finite attribute", m.SecurityID)
		}
	}
	return nil
}

// Split is the two-stage sort output for one rebalance date.
type Split struct {
	Date  time.Time
	Long  Leg
	Short Leg
}

type splitWire struct {
	Long  Leg `json:"long_split"`
	Short Leg `json:"short_split"`
}

func (s Split) MarshalJSON() ([]byte, error) {
	return json.Marshal(splitWire{Long: s.Long, Short: s.Short})
}

// UnmarshalJSON restores both legs. Date is not part of the record; the
// artifact keys splits by date.
func (s *Split) UnmarshalJSON(raw []byte) error {
	var w splitWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return err
	}
	w.Long.Side = SideLong
	w.Short.Side = SideShort
	s.Long = w.Long
	s.Short = w.Short
	return nil
}

// WeightSet maps security id to a signed portfolio weight for one leg.
type WeightSet map[string]float64

// AbsSum is the gross exposure of the set.
func (w WeightSet) AbsSum() float64 {
	sum := 0.0
	for _, v := range w {
		sum += math.Abs(v)
	}
	return sum
}
