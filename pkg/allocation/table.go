package allocation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// Entry is one raw row of an allocation table document.
type Entry struct {
	Account string
	Amount  string
}

// Table is an allocation table document (account -> amount) that keeps the
// key order of the JSON object it was decoded from.
type Table struct {
	Entries []Entry
}

// LoadTable decodes an allocation table document from r.
func LoadTable(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read allocation table")
	}
	table := &Table{}
	if err := json.Unmarshal(data, table); err != nil {
		return nil, errors.Wrap(err, "failed to decode allocation table")
	}
	return table, nil
}

func (t *Table) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("allocation table must be a JSON object")
	}

	entries := make([]Entry, 0)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected key token %v", keyTok)
		}

		valueTok, err := dec.Token()
		if err != nil {
			return err
		}
		var amount string
		switch v := valueTok.(type) {
		case string:
			amount = v
		case json.Number:
			amount = v.String()
		default:
			return &InvalidAmountError{Value: fmt.Sprint(valueTok), Reason: fmt.Sprintf("amount for %s must be a string or number", key)}
		}
		entries = append(entries, Entry{Account: key, Amount: amount})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	t.Entries = entries
	return nil
}

func (t Table) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, entry := range t.Entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(entry.Account)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(entry.Amount)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Add appends an entry.
func (t *Table) Add(account string, amount string) {
	t.Entries = append(t.Entries, Entry{Account: account, Amount: amount})
}

// Accounts returns the canonical accounts of the table in document order.
func (t *Table) Accounts() ([]common.Address, error) {
	accounts := make([]common.Address, 0, len(t.Entries))
	for _, entry := range t.Entries {
		account, err := ParseAccount(entry.Account)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}
