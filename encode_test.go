package folio

import (
	"bytes"
	"strings"
	"testing"

	"github.com/etnz/folio/date"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	day := date.MustParse("2025-02-01")
	txs := []Transaction{
		NewInit(day, "", "EUR", "my portfolio"),
		NewDeclare(day, "", "ALV", "Allianz SE", "EUR"),
		NewDeposit(day, "first funding", eur(10000)),
		NewBuy(day, "", "ALV", Q(100), eur(1000), eur(5)),
		NewSell(day, "trim", "ALV", Q(40), eur(520), eur(0)),
		NewDividend(day, "", "ALV", eur(40), eur(10)),
		NewInterest(day, "", eur(12), eur(0)),
		NewWithdraw(day, "", eur(500)),
		NewFee(day, "custody", eur(3)),
		NewTax(day, "", eur(8)),
		NewConvert(day, "", usd(500), eur(450)),
		NewSplit(day, "ALV", 2, 1),
	}

	var buf bytes.Buffer
	if err := EncodeTransactions(&buf, txs); err != nil {
		t.Fatalf("EncodeTransactions: %v", err)
	}
	if got := strings.Count(buf.String(), "\n"); got != len(txs) {
		t.Fatalf("encoded %d lines, want %d", got, len(txs))
	}

	decoded, err := DecodeTransactions(&buf)
	if err != nil {
		t.Fatalf("DecodeTransactions: %v", err)
	}
	if len(decoded) != len(txs) {
		t.Fatalf("decoded %d transactions, want %d", len(decoded), len(txs))
	}
	for i, tx := range txs {
		if !tx.Equal(decoded[i]) {
			t.Errorf("transaction %d (%s) did not survive the round trip", i, tx.What())
		}
	}
}

func TestDecodeTransactions_SortsByDate(t *testing.T) {
	in := strings.Join([]string{
		`{"command":"deposit","date":"2025-03-01","amount":300,"currency":"EUR"}`,
		`{"command":"deposit","date":"2025-01-01","amount":100,"currency":"EUR"}`,
		`{"command":"deposit","date":"2025-02-01","amount":200,"currency":"EUR"}`,
		`{"command":"deposit","date":"2025-01-01","memo":"second","amount":150,"currency":"EUR"}`,
	}, "\n")

	txs, err := DecodeTransactions(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 4 {
		t.Fatalf("decoded %d, want 4", len(txs))
	}
	want := []Money{eur(100), eur(150), eur(200), eur(300)}
	for i, tx := range txs {
		d, ok := tx.(Deposit)
		if !ok {
			t.Fatalf("transaction %d is %T", i, tx)
		}
		if !d.Amount.Equal(want[i]) {
			t.Errorf("transaction %d amount = %s, want %s", i, d.Amount, want[i])
		}
	}
}

func TestDecodeTransactions_SkipsBlankLines(t *testing.T) {
	in := "\n" + `{"command":"fee","date":"2025-01-01","amount":3,"currency":"EUR"}` + "\n\n"
	txs, err := DecodeTransactions(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 1 {
		t.Fatalf("decoded %d transactions, want 1", len(txs))
	}
}

func TestDecodeTransactions_UnknownCommand(t *testing.T) {
	in := `{"command":"teleport","date":"2025-01-01"}`
	if _, err := DecodeTransactions(strings.NewReader(in)); err == nil {
		t.Error("unknown command accepted")
	}
}

func TestEncodeTransaction_OmitsZeroFee(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeTransaction(&buf, NewBuy(date.MustParse("2025-02-01"), "", "ALV", Q(10), eur(100), Money{})); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "fee") {
		t.Errorf("zero fee serialized: %s", buf.String())
	}
}
