package schedule

import "github.com/google/uuid"

// Default2024Week is the SE third-semester timetable preloaded for the 2024
// batch: Monday through Thursday, Friday off, prayer break at 13:00-13:30.
func Default2024Week(batchID string) []Slot {
	mk := func(wd int, subject, start, end, location string) Slot {
		return Slot{ID: uuid.NewString(), BatchID: batchID, Weekday: wd, Subject: subject, Start: start, End: end, Location: location}
	}
	return []Slot{
		mk(1, "OS (Lab)", "08:30", "10:30", "Lab 2"),
		mk(1, "ISE (Lab)", "10:30", "12:00", "Lab 2"),
		mk(1, "CVT (CR1)", "12:00", "13:00", "CR 1"),
		mk(1, "CVT (CR1) — Continue", "13:30", "15:00", "CR 1"),

		mk(2, "DSA (Lab)", "08:30", "10:30", "Lab 2"),
		mk(2, "ISE (Lab)", "10:30", "12:00", "Lab 2"),
		mk(2, "OS-L (Lab)", "12:00", "13:30", "Lab 2"),
		mk(2, "OS-L (Lab) — Continue", "13:30", "15:00", "Lab 2"),

		mk(3, "DSA (Lab)", "08:30", "10:30", "Lab 2"),
		mk(3, "OS (Lab)", "10:30", "12:00", "Lab 2"),
		mk(3, "PS (CR1)", "12:00", "13:30", "CR 1"),
		mk(3, "PS (CR1) — Continue", "13:30", "15:00", "CR 1"),

		mk(4, "Quranic Translation", "08:00", "11:00", "Block A"),
		mk(4, "DSA-L (Lab)", "12:00", "13:30", "Lab 2"),
		mk(4, "DSA-L (Lab) — Continue", "13:30", "15:00", "Lab 2"),
	}
}
