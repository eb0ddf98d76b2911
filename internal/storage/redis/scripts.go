package redis

import "github.com/redis/go-redis/v9"

const (
	// applySegmentsScript performs a batch of segment writes atomically.
	// Every update and delete is checked against the segments present
	// (including those created or removed earlier in the batch) before
	// anything is written; the first failing write's 1-based position is
	// returned and nothing changes. 0 means the batch was applied.
	//
	// KEYS[1] is the active pointer, then per write its segment hash and
	// its date index. ARGV[1] is the date index prefix, then eight fields
	// per write: op, id, date, start minutes, start, end, label, is_break.
	applySegmentsScript = `
local active_key = KEYS[1]      -- daybook:segments:active
local date_prefix = ARGV[1]
local fields = 8
local count = (#ARGV - 1) / fields

local function field(i, n)
  return ARGV[1 + (i - 1) * fields + n]
end

local present = {}
for i = 1, count do
  local op = field(i, 1)
  local id = field(i, 2)
  local exists = present[id]
  if exists == nil then
    exists = redis.call('EXISTS', KEYS[2 * i]) == 1
  end
  if op ~= 'insert' and not exists then
    return i
  end
  present[id] = op ~= 'delete'
end

for i = 1, count do
  local op = field(i, 1)
  local id = field(i, 2)
  local date = field(i, 3)
  local finish = field(i, 6)
  local segment_key = KEYS[2 * i]   -- daybook:segment:{id}
  local date_index = KEYS[2 * i + 1] -- daybook:segments:date:{date}

  local previous_date = redis.call('HGET', segment_key, 'date')
  if op == 'delete' then
    redis.call('ZREM', date_prefix .. previous_date, id)
    redis.call('DEL', segment_key)
    if redis.call('GET', active_key) == id then
      redis.call('DEL', active_key)
    end
  else
    -- A segment moved to another day leaves its old index
    if previous_date and previous_date ~= date then
      redis.call('ZREM', date_prefix .. previous_date, id)
    end

    redis.call('HSET', segment_key,
      'id', id,
      'date', date,
      'start', field(i, 5),
      'end', finish,
      'label', field(i, 7),
      'is_break', field(i, 8)
    )
    redis.call('ZADD', date_index, tonumber(field(i, 4)), id)

    if finish == '' then
      redis.call('SET', active_key, id)
    elseif redis.call('GET', active_key) == id then
      redis.call('DEL', active_key)
    end
  end
end

return 0
`

	// insertBlockScript stores a block and appends it to its date list
	insertBlockScript = `
local block_key = KEYS[1]       -- daybook:block:{id}
local date_list = KEYS[2]       -- daybook:blocks:date:{date}

redis.call('HSET', block_key,
  'id', ARGV[1],
  'date', ARGV[2],
  'start', ARGV[3],
  'end', ARGV[4],
  'label', ARGV[5],
  'duration_minutes', ARGV[6]
)
redis.call('RPUSH', date_list, ARGV[1])

return 1
`

	// replaceBlocksScript drops every block of a date, stores the given
	// ones in order and returns how many were dropped. ARGV[1] is the block
	// key prefix, then six fields per new block: id, date, start, end,
	// label, duration_minutes.
	replaceBlocksScript = `
local date_list = KEYS[1]       -- daybook:blocks:date:{date}
local block_prefix = ARGV[1]
local fields = 6

local ids = redis.call('LRANGE', date_list, 0, -1)
for _, id in ipairs(ids) do
  redis.call('DEL', block_prefix .. id)
end
redis.call('DEL', date_list)

for i = 2, #ARGV, fields do
  local id = ARGV[i]
  redis.call('HSET', block_prefix .. id,
    'id', id,
    'date', ARGV[i + 1],
    'start', ARGV[i + 2],
    'end', ARGV[i + 3],
    'label', ARGV[i + 4],
    'duration_minutes', ARGV[i + 5]
  )
  redis.call('RPUSH', date_list, id)
end

return #ids
`

	// recordLabelScript counts one use of a label. The usage index score
	// packs count and last use (unix seconds) so that ZREVRANGE yields the
	// suggestion order directly.
	recordLabelScript = `
local label_key = KEYS[1]       -- daybook:label:{normalized}
local usage_index = KEYS[2]     -- daybook:labels:usage

local member = ARGV[1]
local label = ARGV[2]
local last_used = ARGV[3]
local last_used_unix = tonumber(ARGV[4])

local count = redis.call('HINCRBY', label_key, 'usage_count', 1)
redis.call('HSET', label_key,
  'label', label,
  'last_used', last_used
)
redis.call('ZADD', usage_index, count * 10000000000 + last_used_unix, member)

return count
`
)

var (
	applySegments = redis.NewScript(applySegmentsScript)
	insertBlock   = redis.NewScript(insertBlockScript)
	replaceBlocks = redis.NewScript(replaceBlocksScript)
	recordLabel   = redis.NewScript(recordLabelScript)
)
