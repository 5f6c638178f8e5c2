// Package quote answers rate lookups and conversions out of the published named rates
package quote
