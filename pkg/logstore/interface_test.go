package logstore

var (
	_ Driver = (*SQLiteDriver)(nil)
	_ Driver = (*RelationalDriver)(nil)
	_ Driver = NoopDriver{}
)
