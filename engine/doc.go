// Package engine derives the published exchange rates out of the P2P order books.
//
// A run selects one base price per configured market (BUY markets first, then SELL),
// combines every origin BUY base with every destination SELL base into the full,
// public and wholesale pair rates, and appends their rolling averages.
// All business rules (markets, method rules, margins, orientation, precision)
// live in the typed Tables
package engine
