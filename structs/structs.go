package structs

import "strings"

// Cell 描述网格上的一个格子。
type Cell struct {
	X int `json:"x"` // X坐标
	Y int `json:"y"` // Y坐标
}

// Add returns the cell shifted by one step in direction d.
func (c Cell) Add(d Direction) Cell {
	return Cell{X: c.X + d.DX, Y: c.Y + d.DY}
}

// Direction is a unit delta along a single axis.
type Direction struct {
	DX int `json:"dx"`
	DY int `json:"dy"`
}

var (
	Up    = Direction{DX: 0, DY: -1}
	Down  = Direction{DX: 0, DY: 1}
	Left  = Direction{DX: -1, DY: 0}
	Right = Direction{DX: 1, DY: 0}
)

// Opposite reports whether d points exactly against o.
func (d Direction) Opposite(o Direction) bool {
	return d.DX == -o.DX && d.DY == -o.DY && d != (Direction{})
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "none"
	}
}

// ParseDirection 把 "up", "down", "left", "right" 转换成方向，大小写不敏感。
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up":
		return Up, true
	case "down":
		return Down, true
	case "left":
		return Left, true
	case "right":
		return Right, true
	}
	return Direction{}, false
}

// State is the lifecycle phase of a game.
type State string

const (
	StateNotStarted State = "not_started"
	StateRunning    State = "running"
	StateEnded      State = "ended"
)

// Outcome is what a single tick reported.
type Outcome string

const (
	OutcomeNone          Outcome = ""
	OutcomeContinued     Outcome = "continued"
	OutcomeOutOfBounds   Outcome = "out_of_bounds"
	OutcomeSelfCollision Outcome = "self_collision"
)

// Snapshot 是一次状态变化之后的只读拷贝，交给渲染和各个显示端使用。
type Snapshot struct {
	Session   string    `json:"session"`   // 本局游戏标识
	Tick      int       `json:"tick"`      // 已执行的步数
	GridSize  int       `json:"grid_size"` // 网格边长
	Body      []Cell    `json:"body"`      // 蛇身，0 为蛇头
	Direction Direction `json:"direction"` // 下一步的方向
	Food      Cell      `json:"food"`      // 食物位置
	Score     int       `json:"score"`     // 分数
	State     State     `json:"state"`     // 游戏阶段
	Outcome   Outcome   `json:"outcome"`   // 最近一步的结果
}

// Head returns the head cell of the snapshot's snake.
func (s Snapshot) Head() Cell {
	if len(s.Body) == 0 {
		return Cell{}
	}
	return s.Body[0]
}
