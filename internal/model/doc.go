// Package model defines shared data types used across the auction data pipeline.
//
// Conventions:
//   - Prices: copper, the feed's smallest denomination; per-unit prices are
//     float64 because buyout/quantity rarely divides evenly
//   - Timestamps: int64 milliseconds since Unix epoch (the feed's lastModified
//     resolution)
//   - IDs: int64 for listings and items, string for owners ("Name-Realm")
package model
