package shared

// Confidence grades how reliable a candidate match is
type Confidence string

const (
	ConfidenceHigh    Confidence = "HIGH"
	ConfidenceMedium  Confidence = "MEDIUM"
	ConfidenceLow     Confidence = "LOW"
	ConfidenceNoMatch Confidence = "NO_MATCH"
)

// rank enables type-checked floor comparisons; higher is more reliable
func (c Confidence) rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether c meets the given confidence floor
func (c Confidence) AtLeast(floor Confidence) bool {
	return c.rank() >= floor.rank()
}

// Valid reports whether c is a member of the closed enumeration
func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow, ConfidenceNoMatch:
		return true
	}
	return false
}

// Strategy identifies which matching strategy produced a candidate
type Strategy string

const (
	StrategyExactKey       Strategy = "EXACT_KEY"
	StrategyAmountDate     Strategy = "AMOUNT_DATE_WINDOW"
	StrategyNameSimilarity Strategy = "NAME_SIMILARITY"
	StrategyBatchAggregate Strategy = "BATCH_AGGREGATE"
)

// Mode distinguishes preview runs from runs that write links
type Mode string

const (
	ModePreview Mode = "preview"
	ModeApply   Mode = "apply"
)

// Valid reports whether m is a known run mode
func (m Mode) Valid() bool {
	return m == ModePreview || m == ModeApply
}

// Outcome is the terminal state of a source record for one run
type Outcome string

const (
	OutcomeLinked        Outcome = "LINKED"
	OutcomeAlreadyLinked Outcome = "ALREADY_LINKED"
	OutcomeAmbiguous     Outcome = "AMBIGUOUS"
	OutcomeUnmatched     Outcome = "UNMATCHED"
)

// OutboxStatus defines link-event publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)
