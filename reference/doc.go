// Package reference provides the official reference rates published alongside the P2P rates.
//
// # BCV (Official Central Bank)
//
// URL: https://www.bcv.org.ve/
// Interval: 24 hours
//
// Scrapes the official rates of Banco Central de Venezuela and appends them
// as named rates ("Tasa BCV USD", "Tasa BCV EUR", ...).
// The effective date is parsed from the "Fecha Valor" field on the page.
package reference
