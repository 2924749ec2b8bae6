package importer

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"
)

// OFXHeaders is the header row of a grid built from an OFX statement.
var OFXHeaders = []string{"Date", "Payee", "Amount", "Notes"}

var severityRe = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)

// ReadOFX flattens the bank and credit card statements of an OFX/QFX file
// into a RawGrid with OFXHeaders. Dates are rendered in InputDateLayout so
// the grid can go through the regular column mapping.
func ReadOFX(r io.Reader) (RawGrid, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read ofx: %w", err)
	}
	cleaned := strings.TrimLeft(string(content), " \t\r\n")
	cleaned = severityRe.ReplaceAllStringFunc(cleaned, strings.ToUpper)

	resp, err := ofxgo.ParseResponse(strings.NewReader(cleaned))
	if err != nil {
		return nil, fmt.Errorf("parse ofx: %w", err)
	}

	grid := RawGrid{append([]string(nil), OFXHeaders...)}
	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok && stmt.BankTranList != nil {
			grid = appendOFXRows(grid, stmt.BankTranList.Transactions)
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok && stmt.BankTranList != nil {
			grid = appendOFXRows(grid, stmt.BankTranList.Transactions)
		}
	}
	return grid, nil
}

func appendOFXRows(grid RawGrid, txs []ofxgo.Transaction) RawGrid {
	for _, tx := range txs {
		payee := string(tx.Name)
		if tx.Payee != nil && tx.Payee.Name != "" {
			payee = string(tx.Payee.Name)
		}
		grid = append(grid, []string{
			tx.DtPosted.Time.Format(InputDateLayout),
			strings.TrimSpace(payee),
			tx.TrnAmt.FloatString(3),
			strings.TrimSpace(string(tx.Memo)),
		})
	}
	return grid
}

// OFXAssignment binds the OFXHeaders columns to their fields.
func OFXAssignment() *Assignment {
	a := NewAssignment()
	a.Assign(0, FieldDate)
	a.Assign(1, FieldPayee)
	a.Assign(2, FieldAmount)
	a.Assign(3, FieldNotes)
	return a
}
