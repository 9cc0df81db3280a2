package models

// ItemKind names the variant of an Item.
type ItemKind string

const (
	KindSecurity     ItemKind = "security"
	KindTransaction  ItemKind = "transaction"
	KindBuySellEntry ItemKind = "buysell"
)

// Item is one unit of extraction output. The set of implementations is closed:
// SecurityItem, TransactionItem and BuySellEntryItem. Consumers type-switch.
type Item interface {
	Kind() ItemKind
	isItem()
}

// SecurityItem announces a security created during extraction.
type SecurityItem struct {
	Security Security `json:"security"`
}

// TransactionItem is a standalone account transaction (deposit, dividend, fee, ...).
type TransactionItem struct {
	Transaction AccountTransaction `json:"transaction"`
}

// BuySellEntryItem is a trade with its portfolio and account sides.
type BuySellEntryItem struct {
	Entry BuySellEntry `json:"entry"`
}

func (SecurityItem) Kind() ItemKind     { return KindSecurity }
func (TransactionItem) Kind() ItemKind  { return KindTransaction }
func (BuySellEntryItem) Kind() ItemKind { return KindBuySellEntry }

func (SecurityItem) isItem()     {}
func (TransactionItem) isItem()  {}
func (BuySellEntryItem) isItem() {}
