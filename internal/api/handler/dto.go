package handler

// RunResponse represents a reconciliation run in API responses
type RunResponse struct {
	ID              string `json:"id"`
	Mode            string `json:"mode"`
	Selector        string `json:"selector"`
	ConfidenceFloor string `json:"confidence_floor"`
	StartedAt       string `json:"started_at"`
	CompletedAt     string `json:"completed_at,omitempty"`
	Linked          int    `json:"linked"`
	AlreadyLinked   int    `json:"already_linked"`
	Ambiguous       int    `json:"ambiguous"`
	Unmatched       int    `json:"unmatched"`
	Errored         int    `json:"errored"`
	LinkedAmount    string `json:"linked_amount"`
	UnmatchedAmount string `json:"unmatched_amount"`
}

// RunListResponse represents a page of runs in API responses
type RunListResponse struct {
	Runs []RunResponse `json:"runs"`
}

// AuditResponse represents a match audit row in API responses
type AuditResponse struct {
	ID            string  `json:"id"`
	RunID         string  `json:"run_id"`
	Mode          string  `json:"mode"`
	Strategy      string  `json:"strategy"`
	Confidence    string  `json:"confidence"`
	Outcome       string  `json:"outcome"`
	PaymentID     string  `json:"payment_id,omitempty"`
	LedgerEntryID string  `json:"ledger_entry_id,omitempty"`
	CharterRef    string  `json:"charter_ref,omitempty"`
	AmountDelta   string  `json:"amount_delta"`
	DateDeltaDays int     `json:"date_delta_days"`
	NameRatio     float64 `json:"name_ratio,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

// AuditListResponse represents a page of audit rows in API responses
type AuditListResponse struct {
	Audits []AuditResponse `json:"audits"`
}

// PageParams represents pagination parameters for list endpoints
type PageParams struct {
	Limit  int `form:"limit,default=20" binding:"min=1,max=200"`
	Offset int `form:"offset,default=0" binding:"min=0"`
}

// AuditFilterParams represents the query filters for audit lookups
type AuditFilterParams struct {
	RunID         string `form:"run_id" binding:"omitempty,uuid"`
	PaymentID     string `form:"payment_id" binding:"omitempty,uuid"`
	LedgerEntryID string `form:"ledger_entry_id" binding:"omitempty,uuid"`
	CharterRef    string `form:"charter_ref"`
	Limit         int    `form:"limit,default=20" binding:"min=1,max=200"`
	Offset        int    `form:"offset,default=0" binding:"min=0"`
}
