package simsite

import (
	"strconv"
	"strings"

	"colonyctl.ai/internal/sim/colony/model"
)

// Export copies the structures and open work orders, ordered by id.
func (w *World) Export() ([]model.Structure, []model.WorkOrder) {
	structures := make([]model.Structure, 0, len(w.structures))
	for _, s := range w.AllStructures() {
		structures = append(structures, *s)
	}
	orders := make([]model.WorkOrder, 0, len(w.orders))
	for _, o := range w.WorkOrders() {
		orders = append(orders, *o)
	}
	return structures, orders
}

// Restore replaces structures and work orders and moves the clock to tick. Units,
// threats and hostiles are transient and are not restored.
func (w *World) Restore(tick uint64, structures []model.Structure, orders []model.WorkOrder) {
	w.tick = tick
	w.structures = map[string]*model.Structure{}
	w.orders = map[string]*model.WorkOrder{}
	for i := range structures {
		s := structures[i]
		w.structures[s.ID] = &s
		w.bumpID(s.ID)
	}
	for i := range orders {
		o := orders[i]
		w.orders[o.ID] = &o
		w.bumpID(o.ID)
	}
}

// bumpID keeps generated ids unique after a restore.
func (w *World) bumpID(id string) {
	i := strings.LastIndexByte(id, '-')
	if i < 0 {
		return
	}
	n, err := strconv.Atoi(id[i+1:])
	if err == nil && n > w.nextID {
		w.nextID = n
	}
}
