package accounting

// Account codes the engine posts to.
const (
	CodeCash              = "1100"
	CodeReceivable        = "1200"
	CodeInventory         = "1300"
	CodePayable           = "2100"
	CodeTaxPayable        = "2300"
	CodePaidInCapital     = "3100"
	CodeSalesRevenue      = "4100"
	CodeCOGS              = "5100"
	CodeOperatingExpenses = "6100"
	CodeOpeningBalance    = "9999"
)

// DefaultChart returns the seed chart of accounts with zero balances.
func DefaultChart() []*Account {
	return []*Account{
		{Code: CodeCash, Name: "Cash & Bank", Class: ClassAsset, Category: "Current Asset"},
		{Code: CodeReceivable, Name: "Accounts Receivable", Class: ClassAsset, Category: "Current Asset"},
		{Code: CodeInventory, Name: "Inventory", Class: ClassAsset, Category: "Current Asset"},
		{Code: CodePayable, Name: "Accounts Payable", Class: ClassLiability, Category: "Current Liability"},
		{Code: CodeTaxPayable, Name: "Tax Payable (VAT)", Class: ClassLiability, Category: "Current Liability"},
		{Code: CodePaidInCapital, Name: "Paid-in Capital", Class: ClassEquity, Category: "Equity"},
		{Code: CodeSalesRevenue, Name: "Sales Revenue", Class: ClassRevenue, Category: "Revenue"},
		{Code: CodeCOGS, Name: "Cost of Goods Sold", Class: ClassExpense, Category: "Cost of Sales"},
		{Code: CodeOperatingExpenses, Name: "Operating Expenses", Class: ClassExpense, Category: "Expense"},
		{Code: CodeOpeningBalance, Name: "Opening Balance", Class: ClassEquity, Category: "Equity"},
	}
}
