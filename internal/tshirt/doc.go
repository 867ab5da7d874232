// Package tshirt implements one time step of the lumped Tshirt
// rainfall-runoff model.
//
// A step partitions input water into surface runoff and infiltration,
// routes infiltration through a soil reservoir with a lateral-flow and a
// percolation outlet, attenuates lateral flow through a Nash cascade,
// routes percolation through a groundwater reservoir, removes an
// evapotranspiration loss and distributes surface runoff with a unit
// hydrograph:
//
//   - [Params]: primary watershed parameters and the values derived from them
//   - [State]: soil, groundwater and cascade storages at a step boundary
//   - [Fluxes]: what one step produced
//   - [Model]: owns the reservoirs and advances the state
//   - [CheckMassBalance]: independent water balance check of a step
//
// # Example
//
//	p, _ := tshirt.NewParams(spec)
//	m, _ := tshirt.NewModel(p, p.ZeroState(), tshirt.DefaultCollaborators())
//	res, err := m.Run(3600, 1e-5, et.Config{PET: 1e-4})
//	bal := tshirt.CheckMassBalance(p, m.Previous(), 1e-5, res.State, res.Fluxes, 3600, tshirt.DefaultTolerance())
//
// # Thread Safety
//
// A Model is NOT thread-safe. Independent catchments must each use their
// own Model and collaborators.
package tshirt
