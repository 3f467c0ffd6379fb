// Package models defines the core domain models for splitledger.
//
// # Models
//
//   - User: a person who can pay for or share an expense
//   - Group: a named set of users who share expenses
//   - Expense: a single payment event, paid by one user and shared by many
//   - Split: one participant's assigned share of an expense
//   - ExpensePatch: the fields an update is allowed to change
//
// # Design Principles
//
// 1. **Values, not references**: expenses leave the store as copies (see Expense.Clone)
// 2. **IDs for relationships**: expenses reference groups by ID, splits reference users by ID
// 3. **Explicit updates**: ExpensePatch names exactly which fields may change
//
// # Invariants
//
// The sum of an expense's splits is expected to equal its amount. The models do
// not enforce this; see calculator.CheckSplits for detection.
//
// Every user referenced by an expense (payer or split participant) is expected
// to be a member of the expense's group. This is a data precondition and is
// never checked at runtime.
package models
