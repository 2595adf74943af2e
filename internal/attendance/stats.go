package attendance

import "math"

// Stats summarizes an attendance view for the dashboard header.
type Stats struct {
	TotalStudents  int     `json:"totalStudents"`
	PresentToday   int     `json:"presentToday"`
	AbsentToday    int     `json:"absentToday"`
	AttendanceRate float64 `json:"attendanceRate"`
}

// ComputeStats derives stats from a roster size and the merged view.
// With no class filter the roster is unknown and totals fall back to
// the entries themselves.
func ComputeStats(rosterSize int, entries []Entry) Stats {
	present := 0
	for _, e := range entries {
		if e.Status == "present" {
			present++
		}
	}

	total := rosterSize
	if total == 0 {
		total = len(entries)
	}
	absent := total - present
	if absent < 0 {
		absent = 0
	}

	rate := 0.0
	if total > 0 {
		rate = math.Round(float64(present)/float64(total)*1000) / 10
	}
	return Stats{
		TotalStudents:  total,
		PresentToday:   present,
		AbsentToday:    absent,
		AttendanceRate: rate,
	}
}
