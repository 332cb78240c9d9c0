package models

// DefaultTopics returns the built-in topic tabs. Config may override the
// list; topic membership is validated at the write boundary.
func DefaultTopics() []string {
	return []string{"General", "Trip", "CollegeEvents", "Studies", "Memes", "Jobs", "Confessions", "Sports"}
}
