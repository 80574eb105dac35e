package script

import (
	"fmt"
	"io/ioutil"
	"reflect"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.starlark.net/starlark"
	"gopkg.in/yaml.v3"
)

// read_yaml(file, key, default) looks up a dotted key ("deps.0.name") in a YAML document.
// Missing keys return default. Documents are parsed once per run. Non-string map keys are
// addressed and returned in their printed form.
func readYaml(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var yamlFile string
	var yamlKey string
	var defaultValue starlark.Value = starlark.None

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 2, &yamlFile, &yamlKey, &defaultValue)
	if err != nil {
		return nil, err
	}

	ctx := getCtx(thread)
	yamlFile = ctx.normalizePath(yamlFile)

	doc, loaded := ctx.yamlCache[yamlFile]
	if !loaded {
		content, err := ioutil.ReadFile(yamlFile)
		if err != nil {
			return nil, eris.Wrapf(err, "failed to open file %s", yamlFile)
		}

		err = yaml.Unmarshal(content, &doc)
		if err != nil {
			return nil, eris.Wrapf(err, "failed to parse file %s", yamlFile)
		}

		ctx.yamlCache[yamlFile] = doc
	}

	value, found := lookupKey(doc, yamlKey)
	if !found {
		return defaultValue, nil
	}

	return toStarlark(value)
}

func lookupKey(doc interface{}, key string) (interface{}, bool) {
	value := reflect.ValueOf(doc)
	for _, part := range strings.Split(key, ".") {
		for value.Kind() == reflect.Interface {
			value = value.Elem()
		}

		switch value.Kind() {
		case reflect.Map:
			value = mapIndex(value, part)
		case reflect.Slice:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= value.Len() {
				return nil, false
			}
			value = value.Index(idx)
		default:
			return nil, false
		}

		if !value.IsValid() {
			return nil, false
		}
	}

	if value.Kind() == reflect.Interface && value.IsNil() {
		return nil, false
	}
	return value.Interface(), true
}

// mapIndex finds part in a map. Maps with non-string keys (e.g. port numbers) are
// matched on the printed key.
func mapIndex(m reflect.Value, part string) reflect.Value {
	if m.Type().Key().Kind() == reflect.String {
		return m.MapIndex(reflect.ValueOf(part))
	}

	iter := m.MapRange()
	for iter.Next() {
		if fmt.Sprint(iter.Key().Interface()) == part {
			return iter.Value()
		}
	}
	return reflect.Value{}
}

func toStarlark(value interface{}) (starlark.Value, error) {
	switch value := value.(type) {
	case nil:
		return starlark.None, nil
	case string:
		return starlark.String(value), nil
	case int:
		return starlark.MakeInt(value), nil
	case float64:
		return starlark.Float(value), nil
	case bool:
		return starlark.Bool(value), nil
	case []interface{}:
		items := make([]starlark.Value, len(value))
		for idx, item := range value {
			converted, err := toStarlark(item)
			if err != nil {
				return nil, err
			}
			items[idx] = converted
		}
		return starlark.NewList(items), nil
	case map[string]interface{}:
		dict := starlark.NewDict(len(value))
		for key, item := range value {
			converted, err := toStarlark(item)
			if err != nil {
				return nil, err
			}
			if err := dict.SetKey(starlark.String(key), converted); err != nil {
				return nil, err
			}
		}
		return dict, nil
	case map[interface{}]interface{}:
		dict := starlark.NewDict(len(value))
		for key, item := range value {
			converted, err := toStarlark(item)
			if err != nil {
				return nil, err
			}
			if err := dict.SetKey(starlark.String(fmt.Sprint(key)), converted); err != nil {
				return nil, err
			}
		}
		return dict, nil
	default:
		return nil, eris.Errorf("can't convert YAML value %v of type %T", value, value)
	}
}
