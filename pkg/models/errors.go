package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyInput est la cause de toute EmptyInputError (errors.Is).
var ErrEmptyInput = errors.New("aucune ligne valide")

// SchemaError : colonnes requises absentes. Le calcul est interrompu avant l'agrégation.
type SchemaError struct {
	Schema  string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema %s: colonnes manquantes %s", e.Schema, strings.Join(e.Missing, ", "))
}

// DateParseError : horodatage illisible sur une ligne. Récupérée localement (ligne écartée).
type DateParseError struct {
	Row   int // index de ligne, hors en-tête
	Value string
}

func (e DateParseError) Error() string {
	return fmt.Sprintf("ligne %d: date illisible %q", e.Row, e.Value)
}

// EmptyInputError : aucune ligne ne survit au filtrage des dates.
type EmptyInputError struct {
	RowsRead int
}

func (e *EmptyInputError) Error() string {
	return fmt.Sprintf("%v (%d lignes lues)", ErrEmptyInput, e.RowsRead)
}

func (e *EmptyInputError) Unwrap() error { return ErrEmptyInput }
