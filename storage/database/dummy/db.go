// Package dummydb provides in-memory repositories for tests and local dev.
// They honor the same conditional-update contract as the SQL repositories:
// an update only lands if the stored state still matches the expected
// precondition, else paper.ErrAlreadyHandled.
package dummydb

import (
	"sync"

	"github.com/EMS-UCU/ucu-uems-sub002/core/audit"
	"github.com/EMS-UCU/ucu-uems-sub002/core/paper"
	"github.com/EMS-UCU/ucu-uems-sub002/core/user"
)

type DB struct {
	paper *paperTable
	audit *auditTable
	user  *userTable
}

func NewDB() *DB {
	return &DB{
		paper: &paperTable{table: make(map[string]*paper.Paper)},
		audit: &auditTable{},
		user:  &userTable{table: make(map[string]*user.User)},
	}
}

type paperTable struct {
	sync.RWMutex
	table map[string]*paper.Paper
}

type auditTable struct {
	sync.RWMutex
	records []audit.Record
}

type userTable struct {
	sync.RWMutex
	table map[string]*user.User
}
