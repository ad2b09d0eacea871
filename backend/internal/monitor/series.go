package monitor

import "strconv"

// TimeSeries holds four equal-length sequences, one entry per log.
type TimeSeries struct {
	Time        []string `json:"time"`
	Temperature []string `json:"temperature"`
	Smoke       []string `json:"smoke"`
	Fire        []string `json:"fire"`
}

// Len is the common length of the sequences.
func (t TimeSeries) Len() int {
	return len(t.Time)
}

// BarSeries is the combined-value chart.
type BarSeries struct {
	Labels []string  `json:"labels"`
	Data   []float64 `json:"data"`
}

func emptySeries() TimeSeries {
	return TimeSeries{Time: []string{}, Temperature: []string{}, Smoke: []string{}, Fire: []string{}}
}

func defaultBars() BarSeries {
	return BarSeries{
		Labels: []string{"10mins", "20mins", "30mins", "40mins", "50mins"},
		Data:   []float64{},
	}
}

func minutesLabel(i int) string {
	return strconv.Itoa((i + 1) * 10)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}

	return "No"
}

// buildSeries maps the logs of userID, in the given order, to a TimeSeries.
func buildSeries(userID string, logs []LogEntry) TimeSeries {
	s := emptySeries()

	for _, l := range logs {
		if l.UserID != userID {
			continue
		}

		i := s.Len()
		s.Time = append(s.Time, minutesLabel(i))
		s.Temperature = append(s.Temperature, l.Temperature.String())
		s.Smoke = append(s.Smoke, yesNo(l.Smoke.Valid && l.Smoke.Value >= SmokeThreshold))
		s.Fire = append(s.Fire, yesNo(l.Fire))
	}

	return s
}

// buildBars maps the summaries of userID to a BarSeries.
func buildBars(userID string, entries []LogSummaryEntry) BarSeries {
	b := BarSeries{Labels: []string{}, Data: []float64{}}

	for _, e := range entries {
		if e.UserID != userID {
			continue
		}

		b.Labels = append(b.Labels, minutesLabel(len(b.Labels))+"mins")
		b.Data = append(b.Data, e.CombinedValue.Value)
	}

	return b
}
