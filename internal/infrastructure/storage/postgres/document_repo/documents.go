package document_repo

import (
	"distledger/internal/domain/documents/issue"
	"distledger/internal/domain/documents/receipt"
	"distledger/internal/infrastructure/storage/postgres"
)

var (
	ReceiptTables = Tables{Entity: "receipt", Header: "doc_receipts", Items: "doc_receipt_items"}
	IssueTables   = Tables{Entity: "issue", Header: "doc_issues", Items: "doc_issue_items"}
)

// NewReceiptRepo creates the receipt repository.
func NewReceiptRepo(txManager *postgres.TxManager) receipt.Repository {
	return New[receipt.Receipt, *receipt.Receipt, receipt.Item](txManager, ReceiptTables,
		func() *receipt.Receipt { return &receipt.Receipt{} })
}

// NewIssueRepo creates the issue repository.
func NewIssueRepo(txManager *postgres.TxManager) issue.Repository {
	return New[issue.Issue, *issue.Issue, issue.Item](txManager, IssueTables,
		func() *issue.Issue { return &issue.Issue{} })
}
