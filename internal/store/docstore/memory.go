package docstore

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Memory es una Collection en memoria. Cada operación es atómica (un mutex
// por colección) y los índices únicos se verifican dentro de la misma
// sección crítica, igual que el índice del servidor.
//
// Filtros soportados: igualdad (con semántica de arrays), $ne, $exists y
// $elemMatch. Updates: $set, $unset, $push (con $each), $pull e $inc.
type Memory struct {
	name string

	mu      sync.Mutex
	docs    []bson.D
	indexes []Index
	calls   int
	fault   func(op string) (Ack, error)
}

// NewMemory crea una colección vacía.
func NewMemory(name string) *Memory {
	return &Memory{name: name}
}

func (m *Memory) Name() string { return m.name }

// Len retorna la cantidad de documentos.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

// Calls retorna cuántas operaciones llegaron a la colección.
func (m *Memory) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Indexes retorna los índices declarados.
func (m *Memory) Indexes() []Index {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Index, len(m.indexes))
	copy(out, m.indexes)
	return out
}

// SetFault instala una función que puede interceptar escrituras (tests).
// Si retorna un Ack no OK o un error, la escritura no se aplica.
func (m *Memory) SetFault(f func(op string) (Ack, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fault = f
}

func (m *Memory) enter(ctx context.Context, op string) (Ack, bool, error) {
	m.calls++
	if err := ctx.Err(); err != nil {
		return Ack{}, true, err
	}
	if m.fault != nil {
		ack, err := m.fault(op)
		if err != nil || !ack.OK {
			return ack, true, err
		}
	}
	return Ack{}, false, nil
}

func (m *Memory) InsertOne(ctx context.Context, doc any) (Ack, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ack, stop, err := m.enter(ctx, "insert"); stop {
		return ack, err
	}

	d, err := normalize(doc)
	if err != nil {
		return Ack{}, err
	}
	id, ok := get(d, "_id")
	if !ok || isZeroID(id) {
		id = bson.NewObjectID()
		d = set(d, "_id", id)
		if d, err = normalize(d); err != nil {
			return Ack{}, err
		}
	}
	if ack := m.checkUnique(d, -1); !ack.OK {
		return ack, nil
	}
	m.docs = append(m.docs, d)
	return Ack{OK: true, InsertedID: id}, nil
}

func (m *Memory) ReplaceOne(ctx context.Context, filter bson.D, doc any, upsert bool) (Ack, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ack, stop, err := m.enter(ctx, "replace"); stop {
		return ack, err
	}

	d, err := normalize(doc)
	if err != nil {
		return Ack{}, err
	}
	i := m.find(filter)
	if i < 0 {
		if !upsert {
			return Ack{OK: true}, nil
		}
		id, ok := get(d, "_id")
		if !ok || isZeroID(id) {
			if fid, ok := get(filter, "_id"); ok {
				id = fid
			} else {
				id = bson.NewObjectID()
			}
			d = set(d, "_id", id)
			if d, err = normalize(d); err != nil {
				return Ack{}, err
			}
		}
		if ack := m.checkUnique(d, -1); !ack.OK {
			return ack, nil
		}
		m.docs = append(m.docs, d)
		return Ack{OK: true, UpsertedCount: 1, InsertedID: id}, nil
	}

	curID, _ := get(m.docs[i], "_id")
	if id, ok := get(d, "_id"); ok && !isZeroID(id) && !equal(id, curID) {
		return Ack{Code: CodeImmutableField, Message: "the (immutable) field '_id' was found to have been altered"}, nil
	}
	d = set(d, "_id", curID)
	if d, err = normalize(d); err != nil {
		return Ack{}, err
	}
	if ack := m.checkUnique(d, i); !ack.OK {
		return ack, nil
	}
	m.docs[i] = d
	return Ack{OK: true, MatchedCount: 1, ModifiedCount: 1}, nil
}

func (m *Memory) UpdateOne(ctx context.Context, filter bson.D, update bson.D) (Ack, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ack, stop, err := m.enter(ctx, "update"); stop {
		return ack, err
	}
	ack, _, err := m.updateLocked(filter, update)
	return ack, err
}

func (m *Memory) FindOneAndUpdate(ctx context.Context, filter bson.D, update bson.D, out any) (Ack, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ack, stop, err := m.enter(ctx, "findAndModify"); stop {
		return ack, err
	}
	ack, d, err := m.updateLocked(filter, update)
	if err != nil || !ack.OK || d == nil {
		return ack, err
	}
	if err := decode(d, out); err != nil {
		return Ack{}, err
	}
	return ack, nil
}

func (m *Memory) updateLocked(filter bson.D, update bson.D) (Ack, bson.D, error) {
	i := m.find(filter)
	if i < 0 {
		return Ack{OK: true}, nil, nil
	}
	d, ack := applyUpdate(clone(m.docs[i]), update)
	if !ack.OK {
		return ack, nil, nil
	}
	d, err := normalize(d)
	if err != nil {
		return Ack{}, nil, err
	}
	if ack := m.checkUnique(d, i); !ack.OK {
		return ack, nil, nil
	}
	m.docs[i] = d
	return Ack{OK: true, MatchedCount: 1, ModifiedCount: 1}, d, nil
}

func (m *Memory) DeleteOne(ctx context.Context, filter bson.D) (Ack, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ack, stop, err := m.enter(ctx, "delete"); stop {
		return ack, err
	}
	i := m.find(filter)
	if i < 0 {
		return Ack{OK: true}, nil
	}
	m.docs = append(m.docs[:i], m.docs[i+1:]...)
	return Ack{OK: true, DeletedCount: 1}, nil
}

func (m *Memory) FindOne(ctx context.Context, filter bson.D, out any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if err := ctx.Err(); err != nil {
		return err
	}
	i := m.find(filter)
	if i < 0 {
		return ErrNoDocuments
	}
	return decode(m.docs[i], out)
}

func (m *Memory) EnsureIndexes(ctx context.Context, indexes []Index) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, ix := range indexes {
		if cur, ok := m.index(ix.Name); ok {
			if !reflect.DeepEqual(cur, ix) {
				return &CommandError{
					Code:    CodeIndexOptionsConflict,
					Message: fmt.Sprintf("index %q already exists with different options", ix.Name),
				}
			}
			continue
		}
		if ix.Unique {
			seen := map[string]bool{}
			for _, d := range m.docs {
				for _, k := range indexKeys(d, ix) {
					if seen[k] {
						return &CommandError{Code: CodeDuplicateKey, Message: dupMessage(m.name, ix.Name)}
					}
				}
				for _, k := range indexKeys(d, ix) {
					seen[k] = true
				}
			}
		}
		m.indexes = append(m.indexes, ix)
	}
	return nil
}

func (m *Memory) index(name string) (Index, bool) {
	for _, ix := range m.indexes {
		if ix.Name == name {
			return ix, true
		}
	}
	return Index{}, false
}

func (m *Memory) find(filter bson.D) int {
	for i, d := range m.docs {
		if matches(d, filter) {
			return i
		}
	}
	return -1
}

// checkUnique valida d contra todos los documentos salvo el de posición self.
func (m *Memory) checkUnique(d bson.D, self int) Ack {
	id, _ := get(d, "_id")
	for i, other := range m.docs {
		if i == self {
			continue
		}
		if oid, _ := get(other, "_id"); equal(oid, id) {
			return Ack{Code: CodeDuplicateKey, Message: dupMessage(m.name, "_id_")}
		}
	}
	for _, ix := range m.indexes {
		if !ix.Unique {
			continue
		}
		keys := indexKeys(d, ix)
		if len(keys) == 0 {
			continue
		}
		for i, other := range m.docs {
			if i == self {
				continue
			}
			for _, ok2 := range indexKeys(other, ix) {
				for _, k := range keys {
					if k == ok2 {
						return Ack{Code: CodeDuplicateKey, Message: dupMessage(m.name, ix.Name)}
					}
				}
			}
		}
	}
	return Ack{OK: true}
}

func dupMessage(coll, index string) string {
	return fmt.Sprintf("E11000 duplicate key error collection: %s index: %s dup key", coll, index)
}

// indexKeys retorna las claves (distintas) que d aporta a un índice único.
// Sólo participan valores string, igual que el filtro parcial del índice real.
func indexKeys(d bson.D, ix Index) []string {
	combos := []string{""}
	for n, path := range ix.Keys {
		var vals []string
		for _, v := range flatten(lookup(d, splitPath(path))) {
			if s, ok := v.(string); ok {
				vals = append(vals, s)
			}
		}
		if len(vals) == 0 {
			return nil
		}
		next := make([]string, 0, len(combos)*len(vals))
		for _, c := range combos {
			for _, v := range vals {
				if n > 0 {
					next = append(next, c+"\x00"+v)
				} else {
					next = append(next, v)
				}
			}
		}
		combos = next
	}
	seen := map[string]bool{}
	out := combos[:0]
	for _, c := range combos {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// ─── Documentos ───

func normalize(doc any) (bson.D, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var d bson.D
	if err := bson.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	return d, nil
}

func decode(d bson.D, out any) error {
	raw, err := bson.Marshal(d)
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, out)
}

func clone(d bson.D) bson.D {
	out := make(bson.D, len(d))
	copy(out, d)
	return out
}

func get(d bson.D, key string) (any, bool) {
	for _, e := range d {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

func set(d bson.D, key string, v any) bson.D {
	for i, e := range d {
		if e.Key == key {
			d[i].Value = v
			return d
		}
	}
	return append(d, bson.E{Key: key, Value: v})
}

func unset(d bson.D, key string) bson.D {
	for i, e := range d {
		if e.Key == key {
			return append(d[:i:i], d[i+1:]...)
		}
	}
	return d
}

func isZeroID(v any) bool {
	if v == nil {
		return true
	}
	oid, ok := v.(bson.ObjectID)
	return ok && oid.IsZero()
}

func splitPath(p string) []string { return strings.Split(p, ".") }

func asDoc(v any) (bson.D, bool) {
	switch t := v.(type) {
	case bson.D:
		return t, true
	case bson.M:
		d := bson.D{}
		for k, val := range t {
			d = append(d, bson.E{Key: k, Value: val})
		}
		return d, true
	}
	return nil, false
}

func asArray(v any) ([]any, bool) {
	switch t := v.(type) {
	case bson.A:
		return []any(t), true
	case []any:
		return t, true
	}
	return nil, false
}

// lookup resuelve un path con puntos atravesando arrays como hace el servidor.
func lookup(v any, parts []string) []any {
	if len(parts) == 0 {
		return []any{v}
	}
	if d, ok := asDoc(v); ok {
		val, found := get(d, parts[0])
		if !found {
			return nil
		}
		return lookup(val, parts[1:])
	}
	if arr, ok := asArray(v); ok {
		var out []any
		for _, el := range arr {
			out = append(out, lookup(el, parts)...)
		}
		return out
	}
	return nil
}

// flatten expande los arrays terminales (un campo array matchea por elemento).
func flatten(vals []any) []any {
	out := make([]any, 0, len(vals))
	for _, v := range vals {
		if arr, ok := asArray(v); ok {
			out = append(out, arr...)
			continue
		}
		out = append(out, v)
	}
	return out
}

func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if ai, ok := toInt64(a); ok {
		bi, ok := toInt64(b)
		return ok && ai == bi
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}

// ─── Filtros ───

func matches(d bson.D, filter bson.D) bool {
	for _, e := range filter {
		vals := lookup(d, splitPath(e.Key))
		if op, ok := asDoc(e.Value); ok && len(op) > 0 && strings.HasPrefix(op[0].Key, "$") {
			if !matchOps(vals, op) {
				return false
			}
			continue
		}
		if !matchEq(vals, e.Value) {
			return false
		}
	}
	return true
}

func matchEq(vals []any, want any) bool {
	if want == nil && len(vals) == 0 {
		return true
	}
	for _, v := range vals {
		if equal(v, want) {
			return true
		}
	}
	for _, v := range flatten(vals) {
		if equal(v, want) {
			return true
		}
	}
	return false
}

func matchOps(vals []any, ops bson.D) bool {
	for _, op := range ops {
		switch op.Key {
		case "$ne":
			if matchEq(vals, op.Value) {
				return false
			}
		case "$exists":
			want, _ := op.Value.(bool)
			if (len(vals) > 0) != want {
				return false
			}
		case "$elemMatch":
			sub, _ := asDoc(op.Value)
			found := false
			for _, v := range vals {
				arr, ok := asArray(v)
				if !ok {
					continue
				}
				for _, el := range arr {
					if ed, ok := asDoc(el); ok && matches(ed, sub) {
						found = true
						break
					}
				}
			}
			if !found {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// ─── Updates ───

func applyUpdate(d bson.D, update bson.D) (bson.D, Ack) {
	for _, op := range update {
		fields, ok := asDoc(op.Value)
		if !ok {
			return nil, badValue("update operator %s requires a document", op.Key)
		}
		for _, f := range fields {
			var ack Ack
			switch op.Key {
			case "$set":
				d, ack = setPath(d, splitPath(f.Key), f.Value)
			case "$unset":
				d, ack = unsetPath(d, splitPath(f.Key)), Ack{OK: true}
			case "$push":
				d, ack = push(d, f.Key, f.Value)
			case "$pull":
				d, ack = pull(d, f.Key, f.Value)
			case "$inc":
				d, ack = inc(d, f.Key, f.Value)
			default:
				ack = badValue("unknown update operator %s", op.Key)
			}
			if !ack.OK {
				return nil, ack
			}
		}
	}
	return d, Ack{OK: true}
}

func badValue(format string, args ...any) Ack {
	return Ack{Code: CodeBadValue, Message: fmt.Sprintf(format, args...)}
}

func setPath(d bson.D, parts []string, v any) (bson.D, Ack) {
	if len(parts) == 1 {
		return set(d, parts[0], v), Ack{OK: true}
	}
	cur, found := get(d, parts[0])
	var sub bson.D
	if found {
		s, ok := asDoc(cur)
		if !ok {
			return nil, badValue("cannot create field '%s' in element {%s: %v}", parts[1], parts[0], cur)
		}
		sub = clone(s)
	}
	sub, ack := setPath(sub, parts[1:], v)
	if !ack.OK {
		return nil, ack
	}
	return set(d, parts[0], sub), Ack{OK: true}
}

func unsetPath(d bson.D, parts []string) bson.D {
	if len(parts) == 1 {
		return unset(d, parts[0])
	}
	cur, found := get(d, parts[0])
	if !found {
		return d
	}
	sub, ok := asDoc(cur)
	if !ok {
		return d
	}
	return set(d, parts[0], unsetPath(clone(sub), parts[1:]))
}

func arrayField(d bson.D, key string) ([]any, Ack) {
	cur, found := get(d, key)
	if !found {
		return nil, Ack{OK: true}
	}
	arr, ok := asArray(cur)
	if !ok {
		return nil, badValue("the field '%s' must be an array", key)
	}
	return append([]any(nil), arr...), Ack{OK: true}
}

func push(d bson.D, key string, v any) (bson.D, Ack) {
	arr, ack := arrayField(d, key)
	if !ack.OK {
		return nil, ack
	}
	items := []any{v}
	if each, ok := asDoc(v); ok && len(each) == 1 && each[0].Key == "$each" {
		items = items[:0]
		rv := reflect.ValueOf(each[0].Value)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return nil, badValue("$each requires an array")
		}
		for i := 0; i < rv.Len(); i++ {
			items = append(items, rv.Index(i).Interface())
		}
	}
	for _, it := range items {
		nv, err := normalizeValue(it)
		if err != nil {
			return nil, badValue("%v", err)
		}
		arr = append(arr, nv)
	}
	return set(d, key, bson.A(arr)), Ack{OK: true}
}

func pull(d bson.D, key string, cond any) (bson.D, Ack) {
	arr, ack := arrayField(d, key)
	if !ack.OK {
		return nil, ack
	}
	if arr == nil {
		return d, Ack{OK: true}
	}
	kept := bson.A{}
	for _, el := range arr {
		if sub, ok := asDoc(cond); ok {
			if ed, ok := asDoc(el); ok && matches(ed, sub) {
				continue
			}
		} else if equal(el, cond) {
			continue
		}
		kept = append(kept, el)
	}
	return set(d, key, kept), Ack{OK: true}
}

func inc(d bson.D, key string, by any) (bson.D, Ack) {
	n, ok := toInt64(by)
	if !ok {
		return nil, badValue("cannot increment with non-numeric argument")
	}
	cur, found := get(d, key)
	if !found || cur == nil {
		return set(d, key, n), Ack{OK: true}
	}
	c, ok := toInt64(cur)
	if !ok {
		return nil, badValue("cannot apply $inc to a value of non-numeric type")
	}
	return set(d, key, c+n), Ack{OK: true}
}

// normalizeValue convierte un valor Go en su forma decodificada (bson.D, string, ...).
func normalizeValue(v any) (any, error) {
	d, err := normalize(bson.D{{Key: "v", Value: v}})
	if err != nil {
		return nil, err
	}
	return d[0].Value, nil
}
