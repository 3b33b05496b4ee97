package ingestion

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/guttosm/eftpulse/internal/domain/models"
	"github.com/klauspost/compress/zstd"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return p
}

func deref(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}

func TestParse_TableDriven(t *testing.T) {
	cases := []struct {
		name     string
		content  string
		wantErr  error
		wantCols []string
		wantRows int
		check    func(t *testing.T, b models.RawBatch)
	}{
		{
			name:     "full header",
			content:  "transaction_id,bank_id,customer_id,transaction_date,transaction_amount\nt1,1,10,2025-01-01,100\nt2,1,10,2025-01-01,-5\n",
			wantCols: models.RawColumns,
			wantRows: 2,
		},
		{
			name:     "case, spaces and extra columns",
			content:  " Bank_ID ;Transaction_Date; transaction_amount ;channel;transaction_id\n1;2025-01-01;10.5;web;t1\n",
			wantCols: []string{"transaction_id", "bank_id", "transaction_date", "transaction_amount"},
			wantRows: 1,
			check: func(t *testing.T, b models.RawBatch) {
				r := b.Rows[0]
				if deref(r.BankID) != "1" || deref(r.TransactionAmount) != "10.5" || r.CustomerID != nil {
					t.Fatalf("unexpected row %+v", r)
				}
			},
		},
		{
			name:     "null tokens and short rows",
			content:  "transaction_id,bank_id,customer_id,transaction_date,transaction_amount\nt3,2,NA,2025-01-01,50\nt4,3\n,null, ,2025-01-02,None\n",
			wantCols: models.RawColumns,
			wantRows: 3,
			check: func(t *testing.T, b models.RawBatch) {
				if b.Rows[0].CustomerID != nil {
					t.Fatalf("NA should be nil, got %q", deref(b.Rows[0].CustomerID))
				}
				if b.Rows[1].TransactionDate != nil || deref(b.Rows[1].BankID) != "3" {
					t.Fatalf("short row mishandled: %+v", b.Rows[1])
				}
				r := b.Rows[2]
				if r.TransactionID != nil || r.BankID != nil || r.CustomerID != nil || r.TransactionAmount != nil {
					t.Fatalf("null tokens mishandled: %+v", r)
				}
			},
		},
		{
			name:     "header only",
			content:  "bank_id,transaction_date\n",
			wantCols: []string{"bank_id", "transaction_date"},
			wantRows: 0,
		},
		{
			name:    "no known columns",
			content: "a,b,c\n1,2,3\n",
			wantErr: ErrMissingColumns,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := parse(strings.NewReader(tc.content))
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("want %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if strings.Join(b.Columns, ",") != strings.Join(tc.wantCols, ",") {
				t.Fatalf("columns=%v want %v", b.Columns, tc.wantCols)
			}
			if len(b.Rows) != tc.wantRows {
				t.Fatalf("rows=%d want %d", len(b.Rows), tc.wantRows)
			}
			if tc.check != nil {
				tc.check(t, b)
			}
		})
	}
}

func TestParse_EmptyInput(t *testing.T) {
	if _, err := parse(strings.NewReader("")); err == nil {
		t.Fatalf("expected error for empty input")
	}
}

func TestParseFile_Zstd(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatalf("zstd writer: %v", err)
	}
	if _, err := zw.Write([]byte("bank_id,transaction_id,transaction_date,transaction_amount\n1,t1,2025-01-01,1\n")); err != nil {
		t.Fatalf("compress: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	p := filepath.Join(dir, "tx.csv.zst")
	if err := os.WriteFile(p, buf.Bytes(), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	b, err := parseFile(p)
	if err != nil {
		t.Fatalf("parseFile: %v", err)
	}
	if len(b.Rows) != 1 || b.HasColumn(models.ColCustomerID) {
		t.Fatalf("unexpected batch %+v", b)
	}
}

func TestParseFile_Missing(t *testing.T) {
	if _, err := parseFile(filepath.Join(t.TempDir(), "nope.csv")); err == nil {
		t.Fatalf("expected open error")
	}
}

func TestSniffDelimiter(t *testing.T) {
	cases := map[string]rune{
		"a,b,c":     ',',
		"a;b;c":     ';',
		"a\tb\tc":   '\t',
		"a|b|c":     '|',
		"single":    ',',
		"a;b,c;d;e": ';',
	}
	for in, want := range cases {
		if got := sniffDelimiter(in); got != want {
			t.Fatalf("sniffDelimiter(%q)=%q want %q", in, got, want)
		}
	}
}
