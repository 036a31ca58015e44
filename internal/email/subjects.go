package email

const (
	subjectRunCompletedFmt = "Market analysis ready: %s"
	subjectRunFailedFmt    = "Market analysis failed: %s"
)
