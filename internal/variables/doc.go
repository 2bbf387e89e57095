// Package variables implements scoped variable storage.
//
// A Container holds one scope (global, scene, or one object instance).
// A Chain stacks containers for lookup and is passed explicitly into every
// evaluation; there is no ambient or package-level variable state.
//
// Paths address descendants of structured variables: Player.hp, Items[0],
// Inventory["two words"]. Reads of missing descendants yield Number(0);
// writes create the intermediates they need.
package variables
