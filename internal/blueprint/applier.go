package blueprint

import (
	"encoding/hex"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"pumpCurve/internal/model"
)

const defaultCacheSize = 64

type cacheKey struct {
	title string
	ref   model.TxInput
}

// Applier hands out parameterized pool scripts. Applied programs are
// memoized per (title, output reference).
type Applier struct {
	bp    *Blueprint
	cache *lru.Cache[cacheKey, model.PlutusScript]
}

func NewApplier(bp *Blueprint, cacheSize int) (*Applier, error) {
	if bp == nil {
		return nil, fmt.Errorf("blueprint is nil")
	}
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache, err := lru.New[cacheKey, model.PlutusScript](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Applier{bp: bp, cache: cache}, nil
}

// Script returns the validator title parameterized by ref.
func (a *Applier) Script(title string, ref model.TxInput) (model.PlutusScript, error) {
	key := cacheKey{title: title, ref: model.TxInput{TxHash: strings.ToLower(ref.TxHash), OutputIndex: ref.OutputIndex}}
	if script, ok := a.cache.Get(key); ok {
		return script, nil
	}

	v, err := a.bp.Validator(title)
	if err != nil {
		return model.PlutusScript{}, err
	}
	code, err := hex.DecodeString(v.CompiledCode)
	if err != nil {
		return model.PlutusScript{}, fmt.Errorf("%s compiled code: %w", title, err)
	}
	params, err := OutputRefParams(key.ref)
	if err != nil {
		return model.PlutusScript{}, err
	}
	applied, err := ApplyParams(code, params...)
	if err != nil {
		return model.PlutusScript{}, fmt.Errorf("apply params to %s: %w", title, err)
	}

	script := model.PlutusScript{Version: a.bp.LanguageVersion(), Code: applied}
	a.cache.Add(key, script)
	return script, nil
}

func (a *Applier) MintScript(ref model.TxInput) (model.PlutusScript, error) {
	return a.Script(MintTitle, ref)
}

func (a *Applier) SpendScript(ref model.TxInput) (model.PlutusScript, error) {
	return a.Script(SpendTitle, ref)
}
