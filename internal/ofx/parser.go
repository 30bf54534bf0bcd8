// Package ofx parses OFX/QFX bank statements into ledger transactions.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/caioniehues/obsidian-money-manager/internal/model"
)

// Parser implements OFX/QFX file parsing.
type Parser struct{}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{}
}

// preprocessOFX fixes common formatting issues in OFX files exported by
// real banks: leading blank lines, mixed-case severity values, and
// SGML-style tags missing their closing bracket.
func (p *Parser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	severityRegex := regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	tagFixRegex := regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
	content = tagFixRegex.ReplaceAllString(content, "$1>")

	return content
}

// ParseFile parses an OFX/QFX statement and returns ledger transactions
// from every bank and credit card statement in the response. Messages of
// other types and statements without a transaction list are skipped.
func (p *Parser) ParseFile(_ context.Context, reader io.Reader) ([]model.Transaction, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var transactions []model.Transaction
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			bankStmts++
			if stmt.BankTranList == nil {
				continue
			}
			for _, ofxTxn := range stmt.BankTranList.Transactions {
				transactions = append(transactions, p.convertTransaction(ofxTxn))
			}
		}
	}

	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			ccStmts++
			if stmt.BankTranList == nil {
				continue
			}
			for _, ofxTxn := range stmt.BankTranList.Transactions {
				transactions = append(transactions, p.convertTransaction(ofxTxn))
			}
		}
	}

	slog.Debug("parsed OFX file",
		"total_transactions", len(transactions),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return transactions, nil
}

// convertTransaction maps an OFX transaction onto the ledger model. OFX
// uses signed amounts; the sign becomes the income/expense type and the
// stored amount is the positive magnitude.
func (p *Parser) convertTransaction(ofxTxn ofxgo.Transaction) model.Transaction {
	amount, _ := ofxTxn.TrnAmt.Float64()

	txnType := model.TypeExpense
	if amount > 0 {
		txnType = model.TypeIncome
	}
	if amount < 0 {
		amount = -amount
	}

	return model.Transaction{
		ID:          string(ofxTxn.FiTID),
		Date:        ofxTxn.DtPosted.Time,
		Description: p.extractDescription(ofxTxn),
		Amount:      amount,
		Type:        txnType,
		// Bank statements only contain settled activity.
		Status: model.StatusPaid,
	}
}

// extractDescription picks the most informative text field of an OFX
// transaction and strips bank-added processing prefixes.
func (p *Parser) extractDescription(txn ofxgo.Transaction) string {
	if txn.Payee != nil && txn.Payee.Name != "" {
		return string(txn.Payee.Name)
	}

	name := string(txn.Name)
	if txn.Memo != "" && isGenericDescription(name) {
		name = string(txn.Memo)
	}
	name = strings.TrimSpace(name)

	prefixes := []string{
		"POS PURCHASE ",
		"PURCHASE AUTHORIZED ON ",
		"DEBIT CARD PURCHASE ",
		"ACH DEBIT ",
		"CHECK CARD ",
		"VISA PURCHASE ",
		"MC PURCHASE ",
		"DEBIT PURCHASE ",
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// Leading "MM/DD " date stamps add no merchant information.
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}

	return name
}

// isGenericDescription checks if a transaction name is too generic to be
// useful on its own.
func isGenericDescription(name string) bool {
	generic := []string{
		"DEBIT",
		"CREDIT",
		"PURCHASE",
		"PAYMENT",
		"POS TRANSACTION",
		"CARD PURCHASE",
	}

	upperName := strings.ToUpper(name)
	for _, g := range generic {
		if upperName == g {
			return true
		}
	}
	return false
}
