package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"momentum-backtest/internal/analysis"
	"momentum-backtest/internal/model"
)

// PanelDateLayout is the date format of the panel's date column.
const PanelDateLayout = "2006-01-02"

// PanelColumns is the header written by WritePanelCSV. Readers match columns by
// name, so extra columns and any order are accepted.
var PanelColumns = []string{"security_id", "date", "ret", "ask", "bid", "market_cap", "exchange"}

// ReadPanelFile reads a panel CSV from disk.
func ReadPanelFile(path string) (*Panel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	obs, err := ReadPanelCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return NewPanel(obs), nil
}

// ReadPanelCSV parses panel rows. Returns must be numeric; a malformed row is
// rejected with its line number. Empty quote or market cap fields are allowed
// and read as NaN and 0.
func ReadPanelCSV(r io.Reader) ([]model.Observation, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range []string{"security_id", "date", "ret"} {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	var out []model.Observation
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		get := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		o := model.Observation{SecurityID: get("security_id"), Exchange: get("exchange")}
		if o.SecurityID == "" {
			return nil, fmt.Errorf("line %d: empty security_id", line)
		}
		if o.Date, err = time.Parse(PanelDateLayout, get("date")); err != nil {
			return nil, fmt.Errorf("line %d: date: %w", line, err)
		}
		if o.Return, err = strconv.ParseFloat(get("ret"), 64); err != nil {
			return nil, fmt.Errorf("line %d: ret: %w", line, err)
		}
		if o.Ask, err = optionalFloat(get("ask"), math.NaN()); err != nil {
			return nil, fmt.Errorf("line %d: ask: %w", line, err)
		}
		if o.Bid, err = optionalFloat(get("bid"), math.NaN()); err != nil {
			return nil, fmt.Errorf("line %d: bid: %w", line, err)
		}
		if o.MarketCap, err = optionalFloat(get("market_cap"), 0); err != nil {
			return nil, fmt.Errorf("line %d: market_cap: %w", line, err)
		}
		out = append(out, o)
	}
	return out, nil
}

func optionalFloat(s string, def float64) (float64, error) {
	if s == "" {
		return def, nil
	}
	return strconv.ParseFloat(s, 64)
}

// WritePanelCSV writes observations with the PanelColumns header.
func WritePanelCSV(w io.Writer, obs []model.Observation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(PanelColumns); err != nil {
		return err
	}
	for _, o := range obs {
		row := []string{
			o.SecurityID,
			o.Date.Format(PanelDateLayout),
			fmtFloat(o.Return),
			fmtOptional(o.Ask),
			fmtOptional(o.Bid),
			fmtFloat(o.MarketCap),
			o.Exchange,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func fmtFloat(x float64) string { return strconv.FormatFloat(x, 'g', -1, 64) }

func fmtOptional(x float64) string {
	if math.IsNaN(x) {
		return ""
	}
	return fmtFloat(x)
}

type secMonth struct {
	id  string
	key model.MonthKey
}

type secDay struct {
	id  string
	day time.Time
}

// Panel indexes a daily panel for trailing windows and realized returns.
// It is read-only after construction and safe for concurrent use.
type Panel struct {
	byMonth map[model.MonthKey][]model.Observation
	months  []model.MonthKey
	days    map[model.MonthKey][]time.Time

	monthReturn map[secMonth]float64
	dailyReturn map[secDay]float64
	securities  int
}

// NewPanel indexes obs. Input order is kept within each month.
func NewPanel(obs []model.Observation) *Panel {
	p := &Panel{
		byMonth:     map[model.MonthKey][]model.Observation{},
		days:        map[model.MonthKey][]time.Time{},
		dailyReturn: map[secDay]float64{},
		monthReturn: map[secMonth]float64{},
	}
	seenDay := map[time.Time]bool{}
	seenSec := map[string]bool{}
	perSecMonth := map[secMonth][]model.Observation{}
	for _, o := range obs {
		k := model.MonthOf(o.Date)
		if _, ok := p.byMonth[k]; !ok {
			p.months = append(p.months, k)
		}
		p.byMonth[k] = append(p.byMonth[k], o)
		if !seenDay[o.Date] {
			seenDay[o.Date] = true
			p.days[k] = append(p.days[k], o.Date)
		}
		if !seenSec[o.SecurityID] {
			seenSec[o.SecurityID] = true
			p.securities++
		}
		p.dailyReturn[secDay{o.SecurityID, o.Date}] = o.Return
		sm := secMonth{o.SecurityID, k}
		perSecMonth[sm] = append(perSecMonth[sm], o)
	}
	sort.Slice(p.months, func(i, j int) bool { return p.months[i].Before(p.months[j]) })
	for k := range p.days {
		days := p.days[k]
		sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	}
	for sm, rows := range perSecMonth {
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
		rets := make([]float64, len(rows))
		for i, o := range rows {
			rets[i] = o.Return
		}
		p.monthReturn[sm] = analysis.Compound(rets)
	}
	return p
}

// Months lists the calendar months present, oldest first.
func (p *Panel) Months() []model.MonthKey { return append([]model.MonthKey(nil), p.months...) }

// Securities is the number of distinct securities.
func (p *Panel) Securities() int { return p.securities }

// Window returns observations from the months calendar months ending with
// end's month, dated no later than end.
func (p *Panel) Window(end time.Time, months int) []model.Observation {
	last := model.MonthOf(end)
	var out []model.Observation
	for k := last.AddMonths(-(months - 1)); !last.Before(k); k = k.Next() {
		for _, o := range p.byMonth[k] {
			if !o.Date.After(end) {
				out = append(out, o)
			}
		}
	}
	return out
}

// MonthReturn is the security's compounded return over month k.
func (p *Panel) MonthReturn(id string, k model.MonthKey) (float64, bool) {
	r, ok := p.monthReturn[secMonth{id, k}]
	return r, ok
}

// TradingDays lists the dates in month k on which any security traded.
func (p *Panel) TradingDays(k model.MonthKey) []time.Time { return p.days[k] }

func (p *Panel) DailyReturn(id string, day time.Time) (float64, bool) {
	r, ok := p.dailyReturn[secDay{id, day}]
	return r, ok
}
