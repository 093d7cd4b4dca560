package email

const (
	subjectNewLeadFmt         = "New %s lead available"
	subjectPurchaseReceiptFmt = "Lead purchase confirmed (%s)"
	subjectOverCapAlertFmt    = "Refund required: lead %s oversold"
)
