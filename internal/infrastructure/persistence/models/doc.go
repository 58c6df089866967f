// Package models holds the GORM persistence models and their mapping to
// and from domain entities. Models carry only stored state; derived
// values like invoice totals are computed by the domain after loading.
package models
