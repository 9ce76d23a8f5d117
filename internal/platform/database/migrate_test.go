package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRebind(t *testing.T) {
	q := `UPDATE inscricoes SET nome = ?, telefone = ? WHERE id = ?`
	assert.Equal(t, `UPDATE inscricoes SET nome = $1, telefone = $2 WHERE id = $3`, Rebind(DriverPostgres, q))
	assert.Equal(t, q, Rebind(DriverSQLite, q))
}
