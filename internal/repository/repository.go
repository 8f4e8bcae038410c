// Package repository issues the parameterized statements behind every
// shop operation.
//
// A Repo wraps one session handed in by the caller; it never opens or
// closes connections itself. Errors from the driver are returned as they
// come so callers can inspect them (see package storeerr). Each write runs
// as its own statement and is committed before the method returns.
package repository

import (
	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Repo {
	return &Repo{db: db}
}
