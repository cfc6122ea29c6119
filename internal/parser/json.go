package parser

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/atikulmunna/lognorm/internal/model"
	"github.com/valyala/fastjson"
)

var errNotObject = errors.New("json value is not an object")

// jsonFallback decodes a whole line as a JSON object. fastjson parsers
// are not goroutine-safe, so each decode borrows one from the pool.
type jsonFallback struct {
	pool fastjson.ParserPool
}

func (j *jsonFallback) decode(line string) (model.Record, error) {
	// Parse tolerates raw control characters and unknown escapes in strings.
	if err := fastjson.Validate(line); err != nil {
		return nil, err
	}

	p := j.pool.Get()
	defer j.pool.Put(p)

	v, err := p.Parse(line)
	if err != nil {
		return nil, err
	}
	obj, err := v.Object()
	if err != nil {
		return nil, fmt.Errorf("%w: got %s", errNotObject, v.Type())
	}

	rec := make(model.Record, obj.Len())
	obj.Visit(func(key []byte, v *fastjson.Value) {
		rec[string(key)] = jsonValue(v)
	})
	return normalize(rec), nil
}

// jsonValue copies v out of parser memory. Numbers keep their source
// digits; objects and arrays become map[string]any and []any.
func jsonValue(v *fastjson.Value) any {
	switch v.Type() {
	case fastjson.TypeString:
		b, _ := v.StringBytes()
		return string(b)
	case fastjson.TypeNumber:
		s := v.String()
		if !json.Valid([]byte(s)) { // json.Number must hold JSON grammar
			return s
		}
		return json.Number(s)
	case fastjson.TypeTrue:
		return true
	case fastjson.TypeFalse:
		return false
	case fastjson.TypeObject:
		obj, _ := v.Object()
		m := make(map[string]any, obj.Len())
		obj.Visit(func(key []byte, v *fastjson.Value) {
			m[string(key)] = jsonValue(v)
		})
		return m
	case fastjson.TypeArray:
		arr, _ := v.Array()
		out := make([]any, len(arr))
		for i, item := range arr {
			out[i] = jsonValue(item)
		}
		return out
	default:
		return nil
	}
}
