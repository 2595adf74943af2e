package attendance

import "testing"

func entryWithStatus(id, status string) Entry {
	return Entry{StudentID: id, Status: status}
}

func TestComputeStats(t *testing.T) {
	cases := []struct {
		name       string
		rosterSize int
		entries    []Entry
		want       Stats
	}{
		{
			name:       "full class",
			rosterSize: 4,
			entries: []Entry{
				entryWithStatus("a", "present"),
				entryWithStatus("b", "present"),
				entryWithStatus("c", "present"),
				entryWithStatus("d", "absent"),
			},
			want: Stats{TotalStudents: 4, PresentToday: 3, AbsentToday: 1, AttendanceRate: 75},
		},
		{
			name:       "no roster falls back to entries",
			rosterSize: 0,
			entries: []Entry{
				entryWithStatus("a", "present"),
				entryWithStatus("b", "absent"),
				entryWithStatus("c", "absent"),
			},
			want: Stats{TotalStudents: 3, PresentToday: 1, AbsentToday: 2, AttendanceRate: 33.3},
		},
		{
			name: "empty",
			want: Stats{},
		},
		{
			name:       "rate rounds to one decimal",
			rosterSize: 7,
			entries: []Entry{
				entryWithStatus("a", "present"),
				entryWithStatus("b", "present"),
			},
			want: Stats{TotalStudents: 7, PresentToday: 2, AbsentToday: 5, AttendanceRate: 28.6},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeStats(tc.rosterSize, tc.entries)
			if got != tc.want {
				t.Fatalf("ComputeStats = %+v, want %+v", got, tc.want)
			}
		})
	}
}
