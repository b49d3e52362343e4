package maze

// Reachable counts the cells reachable from the origin through open walls.
func (m *Maze) Reachable() int {
	if m.size == 0 {
		return 0
	}
	visited := make([]bool, m.size*m.size)
	stack := []int{0}
	visited[0] = true
	count := 0
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		count++

		row, col := idx/m.size, idx%m.size
		for _, d := range [4]Direction{North, East, South, West} {
			if m.Closed(d.AheadWall(row, col)) {
				continue
			}
			dr, dc := d.Offset()
			next := (row+dr)*m.size + col + dc
			if !visited[next] {
				visited[next] = true
				stack = append(stack, next)
			}
		}
	}
	return count
}

// FullyConnected reports whether every cell can be reached from the origin.
func (m *Maze) FullyConnected() bool {
	return m.Reachable() == m.size*m.size
}
