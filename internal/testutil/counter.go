package testutil

type MockSequence struct {
	Value   int64
	NextVal int64
}

func (m *MockSequence) Last() int64 {
	return m.Value
}

func (m *MockSequence) Next() int64 {
	m.Value = m.NextVal
	return m.NextVal
}
