package events

// Event categories used to route fanned-out notifications.
const (
	CategoryStandard        = "standard"
	CategoryKYC             = "kyc"
	CategoryTransfer        = "transfer"
	CategoryBalancePlatform = "balance-platform"
)

// eventCategories is the fixed classification table from event code to
// routing category. Codes missing from the table are rejected at ingestion.
var eventCategories = map[string]string{
	"AUTHORISATION":    CategoryStandard,
	"CAPTURE":          CategoryStandard,
	"CAPTURE_FAILED":   CategoryStandard,
	"REFUND":           CategoryStandard,
	"CANCELLATION":     CategoryStandard,
	"CHARGEBACK":       CategoryStandard,
	"REPORT_AVAILABLE": CategoryStandard,

	"ACCOUNT_HOLDER_CREATED":       CategoryKYC,
	"ACCOUNT_HOLDER_UPDATED":       CategoryKYC,
	"ACCOUNT_HOLDER_VERIFICATION":  CategoryKYC,
	"ACCOUNT_HOLDER_STATUS_CHANGE": CategoryKYC,

	"balancePlatform.transfer.created": CategoryTransfer,
	"balancePlatform.transfer.updated": CategoryTransfer,

	"balancePlatform.accountHolder.created":        CategoryBalancePlatform,
	"balancePlatform.accountHolder.updated":        CategoryBalancePlatform,
	"balancePlatform.balanceAccount.created":       CategoryBalancePlatform,
	"balancePlatform.balanceAccount.sweep.created": CategoryBalancePlatform,
	"balancePlatform.balanceAccount.sweep.updated": CategoryBalancePlatform,
}

// Classify maps an event code to its routing category.
func Classify(eventCode string) (string, bool) {
	category, ok := eventCategories[eventCode]
	return category, ok
}
