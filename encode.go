package folio

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// amountCmd is a specialized struct to read a ledger amount split across
// fields. We could use json "inline" but it would work for some transactions
// not all.
type amountCmd struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Fee      decimal.Decimal `json:"fee"`
	Tax      decimal.Decimal `json:"tax"`
}

func (a amountCmd) Money() Money {
	return M(a.Amount, a.Currency)
}

func (a amountCmd) FeeMoney() Money {
	return M(a.Fee, a.Currency)
}

func (a amountCmd) TaxMoney() Money {
	return M(a.Tax, a.Currency)
}

// convertCmd is a specialized struct for decoding json.
type convertCmd struct {
	baseCmd
	FromAmount   decimal.Decimal `json:"fromAmount"`
	FromCurrency string          `json:"fromCurrency"`
	ToAmount     decimal.Decimal `json:"toAmount"`
	ToCurrency   string          `json:"toCurrency"`
}

func (a convertCmd) FromMoney() Money {
	return M(a.FromAmount, a.FromCurrency)
}
func (a convertCmd) ToMoney() Money {
	return M(a.ToAmount, a.ToCurrency)
}

// DecodeTransactions reads a stream of JSONL data, decodes each line into
// the appropriate transaction struct, and returns the transactions sorted
// by date. The sort is stable so same-day transactions keep their relative
// order.
func DecodeTransactions(r io.Reader) ([]Transaction, error) {
	var txs []Transaction
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineBytes := scanner.Bytes()
		if len(lineBytes) == 0 {
			continue
		}

		// Peek at the command to pick the type.
		var identifier struct {
			Command CommandType `json:"command"`
		}
		if err := json.Unmarshal(lineBytes, &identifier); err != nil {
			return nil, fmt.Errorf("failed to identify transaction: %w", err)
		}

		var decodedTx Transaction
		var err error
		switch identifier.Command {
		case CmdInit:
			var tx Init
			err = json.Unmarshal(lineBytes, &tx)
			decodedTx = tx
		case CmdDeclare:
			var tx Declare
			err = json.Unmarshal(lineBytes, &tx)
			decodedTx = tx
		case CmdBuy:
			var tx Buy
			err = json.Unmarshal(lineBytes, &tx)
			decodedTx = tx
		case CmdSell:
			var tx Sell
			err = json.Unmarshal(lineBytes, &tx)
			decodedTx = tx
		case CmdDividend:
			var tx Dividend
			err = json.Unmarshal(lineBytes, &tx)
			decodedTx = tx
		case CmdInterest:
			var tx Interest
			err = json.Unmarshal(lineBytes, &tx)
			decodedTx = tx
		case CmdDeposit:
			var tx Deposit
			err = json.Unmarshal(lineBytes, &tx)
			decodedTx = tx
		case CmdWithdraw:
			var tx Withdraw
			err = json.Unmarshal(lineBytes, &tx)
			decodedTx = tx
		case CmdFee:
			var tx Fee
			err = json.Unmarshal(lineBytes, &tx)
			decodedTx = tx
		case CmdTax:
			var tx Tax
			err = json.Unmarshal(lineBytes, &tx)
			decodedTx = tx
		case CmdConvert:
			var tx Convert
			err = json.Unmarshal(lineBytes, &tx)
			decodedTx = tx
		case CmdSplit:
			var tx Split
			err = json.Unmarshal(lineBytes, &tx)
			decodedTx = tx
		default:
			err = fmt.Errorf("unknown transaction command: %q", identifier.Command)
		}
		if err != nil {
			return nil, err
		}
		txs = append(txs, decodedTx)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading from input: %w", err)
	}

	slices.SortStableFunc(txs, func(a, b Transaction) int {
		return a.When().Compare(b.When())
	})
	return txs, nil
}

// EncodeTransaction marshals a single transaction to JSON and writes it to
// the writer, followed by a newline, in JSONL format.
func EncodeTransaction(w io.Writer, tx Transaction) error {
	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write transaction: %w", err)
	}
	return nil
}

// EncodeTransactions writes transactions to w in JSONL format, sorted by
// date with a stable sort.
func EncodeTransactions(w io.Writer, txs []Transaction) error {
	sorted := slices.Clone(txs)
	slices.SortStableFunc(sorted, func(a, b Transaction) int {
		return a.When().Compare(b.When())
	})
	for _, tx := range sorted {
		if err := EncodeTransaction(w, tx); err != nil {
			return err
		}
	}
	return nil
}
