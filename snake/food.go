package snake

import "github.com/hoshinonyaruko/snake-desktop/structs"

// placeFood picks a cell uniformly from the interior bounds
// 1 <= x,y <= gridSize-2. The body is not consulted unless avoidSnake is set.
func (g *GameState) placeFood() structs.Cell {
	interior := g.gridSize - 2
	if !g.avoidSnake {
		return structs.Cell{
			X: g.rng.Intn(interior) + 1,
			Y: g.rng.Intn(interior) + 1,
		}
	}

	free := make([]structs.Cell, 0, interior*interior)
	for x := 1; x <= interior; x++ {
		for y := 1; y <= interior; y++ {
			c := structs.Cell{X: x, Y: y}
			if !g.occupied(c) {
				free = append(free, c)
			}
		}
	}
	// 没有空位时退回普通随机
	if len(free) == 0 {
		return structs.Cell{
			X: g.rng.Intn(interior) + 1,
			Y: g.rng.Intn(interior) + 1,
		}
	}
	return free[g.rng.Intn(len(free))]
}
