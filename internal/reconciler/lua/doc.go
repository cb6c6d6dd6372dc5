// Package lua implements a reconciling strategy scripted in Lua.
//
// The script runs in a sandboxed gopher-lua state with only the base, table,
// string and math libraries. File loading, require and module are removed,
// and print writes to the strategy's logger.
//
// A script defines a global reconcile function. It receives the dirty region
// and the partition as tables and may return a list of annotations:
//
//	function reconcile(region, partition)
//	    local text = doc.text(partition.offset, partition.length)
//	    if text:find("TODO") then
//	        return {{offset = partition.offset, length = partition.length,
//	                 message = "todo on line " .. doc.line_of_offset(partition.offset)}}
//	    end
//	end
//
// region has the fields type ("INSERT" or "REMOVE"), offset, length and
// text. partition has offset, length and type. An optional global initial
// function runs once when the reconciler is installed; it may return
// annotations the same way.
//
// The doc table gives read access to the document:
//
//	doc.text(offset, length)   text of the range
//	doc.length()               document length
//	doc.line_count()           number of lines
//	doc.line_of_offset(offset) 0-based line containing offset
//	doc.line_offset(line)      start offset of a 0-based line
//
// A gopher-lua state is not safe for concurrent use; every call into the
// state is serialized by the Strategy.
package lua
